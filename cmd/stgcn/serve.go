package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openkpi/stgcn/server"
)

func newServeCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction and optimization API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadContext(log)
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%d", cfg.Port)
			srv := server.New(ctx, log, addr, cfg.OptimizeTimeout)
			log.Info("listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
