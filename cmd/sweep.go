package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargesim/app"
	"github.com/kilianp07/chargesim/core/trials"
	"github.com/kilianp07/chargesim/pkg/export"
)

func newSweepCmd(root *rootOptions) *cobra.Command {
	var (
		maxCP int
		seed  int64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print the concurrency factor for fleets of 1 to N chargepoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, root, func(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
				cfg := svc.Config()
				if cmd.Flags().Changed("max-chargepoints") {
					cfg.Sweep.MaxChargepoints = maxCP
				}
				if cmd.Flags().Changed("seed") {
					cfg.Sweep.Seed = seed
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				points, err := svc.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				w := cmd.OutOrStdout()
				for _, p := range points {
					fmt.Fprintf(w, "Number of chargepoints: %d, Concurrency factor: %.2f\n", p.Chargepoints, p.ConcurrencyFactor)
				}
				if out != "" {
					format, err := export.FormatOf(out)
					if err != nil {
						return err
					}
					return export.ToFile(out, func(w io.Writer) error {
						if format == export.FormatCSV {
							return export.WriteSweepCSV(w, points)
						}
						return export.WriteJSON(w, points)
					})
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&maxCP, "max-chargepoints", trials.DefaultSweepConfig().MaxChargepoints, "largest fleet size")
	f.Int64Var(&seed, "seed", 0, "sweep seed (0 seeds from the clock)")
	f.StringVar(&out, "export", "", "write the sweep to a .csv or .json file")
	return cmd
}
