package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargesim/app"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/pkg/export"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		seed      int64
		daily     bool
		histogram bool
		bins      int
		out       string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single simulation and print its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out != "" {
				if _, err := export.FormatOf(out); err != nil {
					return err
				}
			}
			return withService(cmd, root, func(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
				w := cmd.OutOrStdout()
				printConfig(w, svc.Config().Simulation)
				res, err := svc.RunOnce(ctx, seed)
				if err != nil {
					return fmt.Errorf("simulation: %w", err)
				}
				printResults(w, res)
				fmt.Fprintf(w, "  Charging sessions: %d (%d completed)\n", res.Sessions, res.CompletedSessions)

				if daily {
					p, err := simulation.BuildDailyProfile(res)
					if err != nil {
						return fmt.Errorf("daily profile: %w", err)
					}
					printDailyProfile(w, p)
				}
				if histogram {
					h, err := simulation.BuildPowerHistogram(res, bins)
					if err != nil {
						return fmt.Errorf("power histogram: %w", err)
					}
					printHistogram(w, h)
				}
				if out != "" {
					if err := exportResults(out, res); err != nil {
						return fmt.Errorf("export: %w", err)
					}
					fmt.Fprintf(w, "Results written to %s\n", out)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&seed, "seed", 0, "random seed (0 seeds from the clock)")
	f.BoolVar(&daily, "daily", false, "print the daily energy profile")
	f.BoolVar(&histogram, "histogram", false, "print the interval power histogram")
	f.IntVar(&bins, "bins", simulation.DefaultHistogramBins, "number of histogram bins")
	f.StringVar(&out, "export", "", "write the results to a .csv (power history) or .json file")
	return cmd
}

func exportResults(path string, res *simulation.Results) error {
	format, err := export.FormatOf(path)
	if err != nil {
		return err
	}
	return export.ToFile(path, func(w io.Writer) error {
		if format == export.FormatCSV {
			return export.WritePowerHistoryCSV(w, res)
		}
		return export.WriteJSON(w, res)
	})
}

func printDailyProfile(w io.Writer, p *simulation.DailyProfile) {
	fmt.Fprintln(w, "Daily energy:")
	fmt.Fprintf(w, "  Average: %.1f kWh, Max: %.1f kWh, Min: %.1f kWh\n", p.DailyStats.Avg, p.DailyStats.Max, p.DailyStats.Min)
	fmt.Fprintln(w, "Average day:")
	for _, iv := range p.Intervals {
		fmt.Fprintf(w, "  %s  avg %.2f kWh  max %.2f kWh  min %.2f kWh\n", iv.Time, iv.Avg, iv.Max, iv.Min)
	}
}

func printHistogram(w io.Writer, bins []simulation.HistogramBin) {
	fmt.Fprintln(w, "Power distribution:")
	for _, b := range bins {
		fmt.Fprintf(w, "  <= %.1f kW: %d intervals (%.1f%%)\n", b.UpperKW, b.Count, b.Percentage)
	}
}
