package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/config"
	"github.com/sapslaj/rrsets/provider"
)

type credentialForm struct {
	Name       string   `json:"name" yaml:"name"`
	Parameters []string `json:"parameters" yaml:"parameters"`
}

type providerInfo struct {
	Name        string           `json:"name" yaml:"name"`
	URL         string           `json:"url" yaml:"url"`
	Credentials []credentialForm `json:"credentials" yaml:"credentials"`
}

func describeProviders(registry *provider.Registry) ([]providerInfo, error) {
	infos := make([]providerInfo, 0)
	for _, name := range registry.Names() {
		p, err := registry.Get(name)
		if err != nil {
			return nil, err
		}
		info := providerInfo{
			Name:        p.Name(),
			URL:         p.URL(),
			Credentials: make([]credentialForm, 0),
		}
		for _, shape := range p.CredentialRequirement() {
			info.Credentials = append(info.Credentials, credentialForm{
				Name:       shape.Name,
				Parameters: shape.Parameters,
			})
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func newCmdProviders() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported provider kinds and their credential forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := describeProviders(config.Bindings)
			if err != nil {
				return err
			}
			return printOutput(cmd, infos)
		},
	}
}

// loadConfig parses the configuration file named by --config-file. The
// caller closes it once done with the clients since Lua credential functions
// run in its state.
func loadConfig(cmd *cobra.Command, logger *zap.Logger) (config.Config, error) {
	fileName, _ := cmd.Flags().GetString("config-file")
	c, err := config.NewLuaConfig(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not create new configuration: %w", err)
	}
	if err := c.Parse(); err != nil {
		c.Close()
		return nil, fmt.Errorf("could not parse configuration: %w", err)
	}
	logger.Debug("loaded configuration", zap.String("file", fileName))
	return c, nil
}

func findClient(ctx context.Context, c config.Config, name string) (provider.Client, error) {
	clients, err := c.Providers(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get providers from configuration: %w", err)
	}
	names := make([]string, 0, len(clients))
	for _, named := range clients {
		if named.Name == name {
			return named.Client, nil
		}
		names = append(names, named.Name)
	}
	return nil, fmt.Errorf("unknown provider %q (configured: %s)", name, strings.Join(names, ", "))
}
