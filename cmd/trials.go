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

func newTrialsCmd(root *rootOptions) *cobra.Command {
	var (
		count    int
		workers  int
		seed     int64
		progress bool
		out      string
	)
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Run independent trials and print the concurrency factor distribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, root, func(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
				cfg := svc.Config()
				flags := cmd.Flags()
				if flags.Changed("trials") {
					cfg.Trials.Trials = count
				}
				if flags.Changed("workers") {
					cfg.Trials.Workers = workers
				}
				if flags.Changed("seed") {
					cfg.Trials.Seed = seed
				}
				if err := cfg.Validate(); err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if progress {
					stop := watchProgress(svc, cmd.ErrOrStderr())
					defer stop()
				}
				sum, err := svc.RunTrials(ctx)
				if err != nil {
					return fmt.Errorf("trials: %w", err)
				}
				printBuckets(w, sum)
				fmt.Fprintf(w, "Mean: %.3f, StdDev: %.3f, Min: %.2f, Max: %.2f\n", sum.Mean, sum.StdDev, sum.Min, sum.Max)
				fmt.Fprintf(w, "Time taken: %s\n", sum.Elapsed)
				if out != "" {
					if err := exportTrials(out, sum); err != nil {
						return fmt.Errorf("export: %w", err)
					}
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&count, "trials", trials.DefaultConfig().Trials, "number of trials")
	f.IntVar(&workers, "workers", trials.DefaultConfig().Workers, "trials run in parallel")
	f.Int64Var(&seed, "seed", 0, "batch seed (0 seeds from the clock)")
	f.BoolVar(&progress, "progress", false, "report progress on stderr")
	f.StringVar(&out, "export", "", "write the histogram to a .csv or the summary to a .json file")
	return cmd
}

// watchProgress prints one line per finished trial. The returned func
// unsubscribes and waits for the printer to drain.
func watchProgress(svc *app.Service, w io.Writer) func() {
	sub := svc.Bus().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			fmt.Fprintf(w, "trial %d/%d: concurrency factor %.2f\n", ev.Done, ev.Total, ev.ConcurrencyFactor)
		}
	}()
	return func() {
		svc.Bus().Unsubscribe(sub)
		<-done
	}
}

func exportTrials(path string, sum *trials.Summary) error {
	format, err := export.FormatOf(path)
	if err != nil {
		return err
	}
	return export.ToFile(path, func(w io.Writer) error {
		if format == export.FormatCSV {
			return export.WriteTrialsCSV(w, sum.Buckets)
		}
		return export.WriteJSON(w, sum.Event())
	})
}
