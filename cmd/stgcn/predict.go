package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openkpi/stgcn/csvio"
	"github.com/openkpi/stgcn/engine"
)

func newPredictCmd(log *zap.Logger) *cobra.Command {
	var (
		inputPath string
		paramCols string
		outPath   string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Read a parameter CSV [T,8] and write the predicted KPI CSV [T,3]",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := loadContext(log)
			if err != nil {
				return err
			}

			params, names, err := csvio.ReadParams(inputPath, paramCols)
			if err != nil {
				return err
			}

			kpi, err := ctx.PredictKPI(engine.PromoteBatch(params), nil, raw)
			if err != nil {
				return err
			}

			cols := []string{"KPI_X", "KPI_Y", "KPI_Z"}
			if err := csvio.WriteTrajectory(outPath, cols, kpi[0]); err != nil {
				return err
			}
			log.Info("saved predicted KPI",
				zap.String("path", outPath),
				zap.Strings("param_columns", names))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input_path", "", "CSV path for parameters [T,8]")
	cmd.Flags().StringVar(&paramCols, "param_cols", "", "comma-separated parameter column names or indices")
	cmd.Flags().StringVar(&outPath, "out_path", "predicted_kpi.csv", "output CSV path")
	cmd.Flags().BoolVar(&raw, "raw", true, "return KPI in raw units rather than normalized")
	_ = cmd.MarkFlagRequired("input_path")

	return cmd
}
