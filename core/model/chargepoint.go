package model

// Chargepoint is a charging point with a fixed power rating and at most one
// attached vehicle. The simulation attaches and detaches vehicles by setting
// the Vehicle field directly.
type Chargepoint struct {
	PowerKW float64
	Vehicle *Vehicle
}

// NewChargepoint returns an unoccupied chargepoint.
func NewChargepoint(powerKW float64) *Chargepoint {
	return &Chargepoint{PowerKW: powerKW}
}

// Occupied reports whether a vehicle is attached.
func (c *Chargepoint) Occupied() bool { return c.Vehicle != nil }

// IsCharging reports whether the attached vehicle is still charging.
func (c *Chargepoint) IsCharging() bool {
	return c.Vehicle != nil && c.Vehicle.IsCharging()
}
