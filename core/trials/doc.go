// Package trials repeats independent simulation runs to build the empirical
// distribution of the concurrency factor, and sweeps the fleet size to show
// how the factor falls as chargepoints are added.
//
// Trials share no state. Each one owns a fresh Simulator seeded from the
// batch seed and the trial index, so a seeded batch gives the same summary
// whatever the worker count.
package trials
