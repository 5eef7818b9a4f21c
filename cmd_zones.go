package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/provider"
)

func newCmdZones(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "zones <provider>",
		Short: "List the zones of a configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			client, err := findClient(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			zones, err := paging.Collect(client.Zones().Iterator(cmd.Context()))
			if err != nil {
				return fmt.Errorf("could not list zones: %w", err)
			}
			return printOutput(cmd, zones)
		},
	}
}

// resolveZoneID accepts either a zone ID or a zone name.
func resolveZoneID(ctx context.Context, client provider.Client, zone string) (string, error) {
	it := client.Zones().Iterator(ctx)
	for it.Next() {
		z := it.Value()
		if z.ID == zone || z.Name == zone {
			return z.ID, nil
		}
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("could not list zones: %w", err)
	}
	return zone, nil
}
