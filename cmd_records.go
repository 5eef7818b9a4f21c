package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/config"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/provider"
)

func newCmdRecords(logger *zap.Logger) *cobra.Command {
	var name string
	var typ string

	cmd := &cobra.Command{
		Use:   "records <provider> <zone>",
		Short: "List the record sets of a zone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			api, err := recordSetsAPI(cmd, c, args[0], args[1])
			if err != nil {
				return err
			}

			typ = strings.ToUpper(typ)
			var seq paging.Seq[model.ResourceRecordSet]
			qualified, ok := api.(provider.QualifiedRecordSetAPI)
			switch {
			case name != "" && typ != "" && ok:
				seq = qualified.IterateByNameAndType(cmd.Context(), name, typ)
			case name != "":
				seq = api.IterateByName(cmd.Context(), name)
			default:
				seq = api.Iterator(cmd.Context())
			}
			if typ != "" {
				seq = paging.Filter(seq, func(rrset model.ResourceRecordSet) bool {
					return rrset.Type == typ
				})
			}
			rrsets, err := paging.Collect(seq)
			if err != nil {
				return fmt.Errorf("could not list record sets: %w", err)
			}
			if rrsets == nil {
				rrsets = make([]model.ResourceRecordSet, 0)
			}
			return printOutput(cmd, rrsets)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Only list record sets with this name")
	cmd.Flags().StringVar(&typ, "type", "", "Only list record sets of this type")
	return cmd
}

func newCmdGet(logger *zap.Logger) *cobra.Command {
	var qualifier string

	cmd := &cobra.Command{
		Use:   "get <provider> <zone> <name> <type>",
		Short: "Show one record set",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			api, err := recordSetsAPI(cmd, c, args[0], args[1])
			if err != nil {
				return err
			}
			key := model.Key{Name: args[2], Type: strings.ToUpper(args[3]), Qualifier: qualifier}

			var rrset *model.ResourceRecordSet
			if key.Qualifier == "" {
				rrset, err = api.GetByNameAndType(cmd.Context(), key.Name, key.Type)
			} else {
				qualified, ok := api.(provider.QualifiedRecordSetAPI)
				if !ok {
					return fmt.Errorf("provider %s cannot look up record sets by qualifier", args[0])
				}
				rrset, err = qualified.GetByNameTypeAndQualifier(cmd.Context(), key.Name, key.Type, key.Qualifier)
			}
			if err != nil {
				return fmt.Errorf("could not get record set: %w", err)
			}
			if rrset == nil {
				return fmt.Errorf("record set %s not found in zone %s", strings.Join(keyFields(key), " "), args[1])
			}
			return printOutput(cmd, rrset)
		},
	}
	cmd.Flags().StringVar(&qualifier, "qualifier", "", "Select the record set with this qualifier (set identifier)")
	return cmd
}

func keyFields(key model.Key) []string {
	if key.Qualifier == "" {
		return []string{key.Name, key.Type}
	}
	return []string{key.Name, key.Type, key.Qualifier}
}

func recordSetsAPI(cmd *cobra.Command, c config.Config, providerName, zone string) (provider.ResourceRecordSetAPI, error) {
	client, err := findClient(cmd.Context(), c, providerName)
	if err != nil {
		return nil, err
	}
	zoneID, err := resolveZoneID(cmd.Context(), client, zone)
	if err != nil {
		return nil, err
	}
	return client.RecordSetsInZone(zoneID)
}
