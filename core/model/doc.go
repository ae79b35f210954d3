// Package model defines the vehicles and chargepoints moved through the
// charging simulation.
package model
