package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargesim/app"
	"github.com/kilianp07/chargesim/config"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/core/trials"
	"github.com/kilianp07/chargesim/infra/logger"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	cfgPath  string
	logLevel string

	chargepoints int
	powerKW      float64
	consumption  float64
	days         int
	interval     int
	multiplier   float64
}

// NewRootCmd builds the chargesim command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	def := simulation.DefaultConfig()
	root := &cobra.Command{
		Use:           "chargesim",
		Short:         "EV chargepoint fleet simulation",
		Long:          "Simulates a fleet of chargepoints with random arrivals and charging demand, then estimates the concurrency factor over repeated trials.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, runDriver)
		},
	}
	f := root.PersistentFlags()
	f.StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.IntVar(&opts.chargepoints, "chargepoints", def.Chargepoints, "number of chargepoints")
	f.Float64Var(&opts.powerKW, "power", def.PowerKW, "power per chargepoint in kW")
	f.Float64Var(&opts.consumption, "consumption", def.ConsumptionKWhPer100KM, "vehicle consumption in kWh per 100km")
	f.IntVar(&opts.days, "days", def.Days, "number of days to simulate")
	f.IntVar(&opts.interval, "interval-minutes", def.IntervalMinutes, "interval length in minutes (at most 60)")
	f.Float64Var(&opts.multiplier, "arrival-multiplier", def.ArrivalMultiplier, "multiplier for the arrival probability")

	root.AddCommand(newRunCmd(opts), newTrialsCmd(opts), newSweepCmd(opts), newConfigCmd(opts))
	return root
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// loadConfig reads the configuration and applies the flags set on the
// command line.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("chargepoints") {
		cfg.Simulation.Chargepoints = opts.chargepoints
	}
	if flags.Changed("power") {
		cfg.Simulation.PowerKW = opts.powerKW
	}
	if flags.Changed("consumption") {
		cfg.Simulation.ConsumptionKWhPer100KM = opts.consumption
	}
	if flags.Changed("days") {
		cfg.Simulation.Days = opts.days
	}
	if flags.Changed("interval-minutes") {
		cfg.Simulation.IntervalMinutes = opts.interval
	}
	if flags.Changed("arrival-multiplier") {
		cfg.Simulation.ArrivalMultiplier = opts.multiplier
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withService loads the configuration, builds the service and hands it to
// fn with a context canceled on SIGINT or SIGTERM.
func withService(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *cobra.Command, *app.Service) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, cmd, svc)
}

// runDriver runs one simulation, prints its summary, then runs the trials.
func runDriver(ctx context.Context, cmd *cobra.Command, svc *app.Service) error {
	out := cmd.OutOrStdout()
	printConfig(out, svc.Config().Simulation)
	res, err := svc.RunOnce(ctx, 0)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	printResults(out, res)

	start := time.Now()
	sum, err := svc.RunTrials(ctx)
	if err != nil {
		return fmt.Errorf("trials: %w", err)
	}
	printBuckets(out, sum)
	fmt.Fprintf(out, "Time taken: %s\n", time.Since(start))
	return nil
}

func printConfig(w io.Writer, c simulation.Config) {
	fmt.Fprintf(w, "Starting simulation with %d chargepoints...\n", c.Chargepoints)
	fmt.Fprintf(w, "  Power: %g kW per chargepoint\n", c.PowerKW)
	fmt.Fprintf(w, "  Consumption: %g kWh/100km\n", c.ConsumptionKWhPer100KM)
	fmt.Fprintf(w, "  Duration: %d days\n", c.Days)
	fmt.Fprintf(w, "  Arrival multiplier: %g\n", c.ArrivalMultiplier)
	fmt.Fprintf(w, "  Interval minutes: %d\n\n", c.IntervalMinutes)
}

func printResults(w io.Writer, r *simulation.Results) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Total energy delivered: %.0f kWh\n", r.TotalEnergyKWh)
	fmt.Fprintf(w, "  Maximum power draw: %.0f kW\n", r.MaxPowerKW)
	fmt.Fprintf(w, "  Max theoretical power: %.0f kW\n", r.MaxTheoreticalPowerKW)
	fmt.Fprintf(w, "  Concurrency factor: %.2f\n", r.ConcurrencyFactor)
}

func printBuckets(w io.Writer, s *trials.Summary) {
	for _, b := range s.Buckets {
		fmt.Fprintf(w, "Concurrency factor: %.2f, Count: %d\n", b.Factor, b.Count)
	}
}
