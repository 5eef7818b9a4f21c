package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/pkg/log"
)

func newRootCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rrsets",
		Short:   "Browse DNS resource record sets across providers",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config-file", "config.lua", "Path to configuration file")
	cmd.PersistentFlags().StringP("output", "o", "json", "Output format (json|yaml)")

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdProviders())
	cmd.AddCommand(newCmdZones(logger))
	cmd.AddCommand(newCmdRecords(logger))
	cmd.AddCommand(newCmdGet(logger))
	cmd.AddCommand(newCmdExport(logger))
	cmd.AddCommand(newCmdServe(logger))
	return cmd
}

func main() {
	logger := log.MustNewLogger().Named("main")
	syncLogger := func() {
		err := logger.Sync()
		var perr *fs.PathError
		if err != nil && !errors.As(err, &perr) {
			panic(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go handleSigterm(cancel, logger)

	root := newRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Sugar().Errorw("command failed", "err", err)
		syncLogger()
		os.Exit(1)
	}
	syncLogger()
}

func handleSigterm(cancel func(), logger *zap.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, os.Interrupt)
	<-signals
	logger.Info("Received SIGTERM. Terminating...")
	cancel()
}
