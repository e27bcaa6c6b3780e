package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openkpi/stgcn/csvio"
	"github.com/openkpi/stgcn/engine"
	"github.com/openkpi/stgcn/inverse"
)

func newOptimizeCmd(log *zap.Logger) *cobra.Command {
	var (
		inputPath     string
		kpiCols       string
		origPath      string
		origParamCols string
		outPath       string

		alpha, beta, gamma float64
		steps              int
		lr                 float64
		zmin, zmax         float64
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Read a target KPI CSV and write the optimized parameter CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := loadContext(log)
			if err != nil {
				return err
			}

			target, kpiNames, err := csvio.ReadKPI(inputPath, kpiCols)
			if err != nil {
				return err
			}

			var baseline [][][]float64
			paramNames := csvio.DefaultParamColumns(csvio.ParamColumns)
			if origPath != "" {
				base, names, err := csvio.ReadParams(origPath, origParamCols)
				if err != nil {
					return err
				}
				baseline = engine.PromoteBatch(base)
				paramNames = names
				log.Info("using baseline params", zap.Strings("columns", names))
			}

			// CLI values are externally supplied and go through the same
			// validator as API requests; out-of-range flags fall back to
			// defaults instead of failing the run.
			raw := map[string]any{
				"alpha": alpha, "beta": beta, "gamma": gamma,
				"steps": steps, "lr": lr, "zmin": zmin, "zmax": zmax,
			}
			cfg := inverse.ApplyOverrides(inverse.DefaultConfig(), inverse.Sanitize(raw, log))

			res, err := ctx.OptimizeParams(engine.OptimizeRequest{
				TargetKPI: engine.PromoteBatch(target),
				Baseline:  baseline,
				Config:    cfg,
				ReturnRaw: true,
				Progress: func(step int, l inverse.Losses, _ []float64) {
					if step%50 == 0 {
						log.Info("optimizing",
							zap.Int("step", step), zap.Int("steps", cfg.Steps),
							zap.Float64("total", l.Total),
							zap.Float64("fit", l.Fit),
							zap.Float64("dev", l.Dev))
					}
				},
			})
			if err != nil {
				return err
			}

			if err := csvio.WriteTrajectory(outPath, paramNames, res.Params[0]); err != nil {
				return err
			}
			log.Info("saved optimized params",
				zap.String("path", outPath),
				zap.Strings("kpi_columns", kpiNames))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input_path", "", "CSV path for target KPI [T,3]")
	cmd.Flags().StringVar(&kpiCols, "kpi_cols", "", "comma-separated KPI column names or indices")
	cmd.Flags().StringVar(&origPath, "orig_params_path", "", "optional CSV path for baseline params [T,8]")
	cmd.Flags().StringVar(&origParamCols, "orig_param_cols", "", "comma-separated baseline param column names or indices")
	cmd.Flags().StringVar(&outPath, "out_path", "optimized_params.csv", "output CSV path")
	cmd.Flags().Float64Var(&alpha, "alpha", 1.0, "fit loss weight")
	cmd.Flags().Float64Var(&beta, "beta", 2.0, "deviation loss weight")
	cmd.Flags().Float64Var(&gamma, "gamma", 0.1, "smoothness loss weight")
	cmd.Flags().IntVar(&steps, "steps", 800, "optimization steps")
	cmd.Flags().Float64Var(&lr, "lr", 5e-2, "learning rate")
	cmd.Flags().Float64Var(&zmin, "zmin", -3.0, "lower clamp bound in normalized space")
	cmd.Flags().Float64Var(&zmax, "zmax", 3.0, "upper clamp bound in normalized space")
	_ = cmd.MarkFlagRequired("input_path")

	return cmd
}
