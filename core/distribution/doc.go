// Package distribution holds the empirical distributions that drive the
// charging simulation: the hourly arrival probability of a vehicle at a free
// chargepoint and the distance a vehicle needs to recover once plugged in.
//
// Every sampling function draws exactly one uniform value from the supplied
// RandomSource so that arrivals and energy demands of a run come from one
// consistent stream.
package distribution
