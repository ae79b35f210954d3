// Package simulation runs a fleet of chargepoints through consecutive fixed
// length intervals. Each interval first charges the attached vehicles, then
// samples arrivals on the free chargepoints, and records the power drawn by
// every chargepoint still charging.
//
// A Simulator is single use: construct it, call Run once, keep the Results.
// Independent runs need independent Simulators, each with its own random
// source.
package simulation
