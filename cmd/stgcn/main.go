// Command stgcn runs KPI inference and inverse parameter optimization
// against a trained spatio-temporal graph model, either on CSV files or as
// an HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openkpi/stgcn/config"
	"github.com/openkpi/stgcn/engine"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	root := &cobra.Command{
		Use:           "stgcn",
		Short:         "KPI inference and inverse optimization for process parameters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPredictCmd(log), newOptimizeCmd(log), newServeCmd(log))

	if err := root.Execute(); err != nil {
		log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

// loadContext builds the shared inference context from environment
// configuration. Artifacts load once; every subcommand call reuses them.
func loadContext(log *zap.Logger) (*engine.Context, config.Config, error) {
	cfg := config.FromEnv()
	ctx, err := engine.New(cfg, log)
	if err != nil {
		return nil, cfg, err
	}
	return ctx, cfg, nil
}
