package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCharging is returned when energy is delivered to a vehicle that
	// has no remaining demand.
	ErrNotCharging = errors.New("vehicle is not charging")
	// ErrInvalidDemand is returned when a vehicle is created without a
	// positive energy demand.
	ErrInvalidDemand = errors.New("charging demand must be positive")
	// ErrInvalidEnergy is returned when a negative amount of energy is offered.
	ErrInvalidEnergy = errors.New("available energy must not be negative")
)

// Vehicle is a plugged-in EV with the energy still needed to finish its
// charging session.
type Vehicle struct {
	remainingKWh float64
}

// NewVehicle creates a vehicle requiring demandKWh.
func NewVehicle(demandKWh float64) (*Vehicle, error) {
	if !(demandKWh > 0) {
		return nil, fmt.Errorf("%w: %v kWh", ErrInvalidDemand, demandKWh)
	}
	return &Vehicle{remainingKWh: demandKWh}, nil
}

// RemainingKWh returns the energy still needed.
func (v *Vehicle) RemainingKWh() float64 { return v.remainingKWh }

// IsCharging reports whether the vehicle still needs energy.
func (v *Vehicle) IsCharging() bool { return v.remainingKWh > 0 }

// Charge delivers up to availableKWh and returns the energy actually taken.
// The remaining demand never drops below zero.
func (v *Vehicle) Charge(availableKWh float64) (float64, error) {
	if !v.IsCharging() {
		return 0, ErrNotCharging
	}
	if availableKWh < 0 {
		return 0, fmt.Errorf("%w: %v kWh", ErrInvalidEnergy, availableKWh)
	}
	delivered := availableKWh
	if delivered > v.remainingKWh {
		delivered = v.remainingKWh
	}
	v.remainingKWh -= delivered
	return delivered, nil
}
