package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/zonefile"
)

func newCmdExport(logger *zap.Logger) *cobra.Command {
	var target zonefile.Target
	var ssh zonefile.SSHConfig
	var templateFile string
	var ttl uint32

	cmd := &cobra.Command{
		Use:   "export <provider> <zone>",
		Short: "Render the record sets of a zone as a zone file",
		Long: "Renders the record sets of a zone in master file format, or through a Go template, " +
			"and prints it or saves it to --file. With --ssh-host the file is copied to the remote host " +
			"(password from RRSETS_SSH_PASSWORD).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := zonefile.RenderOptions{TTL: ttl}
			if templateFile != "" {
				data, err := os.ReadFile(templateFile)
				if err != nil {
					return fmt.Errorf("could not read template: %w", err)
				}
				opts.Template = string(data)
			}

			c, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			api, err := recordSetsAPI(cmd, c, args[0], args[1])
			if err != nil {
				return err
			}
			rrsets, err := paging.Collect(api.Iterator(cmd.Context()))
			if err != nil {
				return fmt.Errorf("could not list record sets: %w", err)
			}

			var sb strings.Builder
			if err := zonefile.Render(&sb, args[1], rrsets, opts); err != nil {
				return err
			}
			if target.Filename == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return err
			}
			if ssh.Host != "" {
				ssh.Password = os.Getenv("RRSETS_SSH_PASSWORD")
				target.SSH = &ssh
			}
			w := &zonefile.Writer{Logger: logger.Named("zonefile")}
			return w.Write(cmd.Context(), target, sb.String())
		},
	}
	cmd.Flags().StringVarP(&target.Filename, "file", "f", "", "Save the zone file here instead of printing it")
	cmd.Flags().StringVar(&target.Permissions, "permissions", zonefile.DefaultPermissions, "File permissions of the saved zone file")
	cmd.Flags().StringVar(&templateFile, "template", "", "Render with this Go template instead of the master file format")
	cmd.Flags().Uint32Var(&ttl, "ttl", zonefile.DefaultTTL, "TTL for record sets without one")
	cmd.Flags().StringVar(&ssh.Host, "ssh-host", "", "Copy the zone file to this host over SSH")
	cmd.Flags().StringVar(&ssh.Username, "ssh-user", "", "SSH username")
	cmd.Flags().StringVar(&ssh.KeyFile, "ssh-key-file", "", "SSH private key")
	cmd.Flags().StringVar(&ssh.KnownHostsFile, "ssh-known-hosts", "", "known_hosts file used to verify the host key")
	return cmd
}
