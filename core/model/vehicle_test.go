package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVehicle_RejectsNonPositiveDemand(t *testing.T) {
	for _, d := range []float64{0, -1} {
		_, err := NewVehicle(d)
		assert.ErrorIs(t, err, ErrInvalidDemand, "demand %v", d)
	}
}

func TestVehicle_ChargeClampsToDemand(t *testing.T) {
	v, err := NewVehicle(10)
	require.NoError(t, err)
	require.True(t, v.IsCharging())

	got, err := v.Charge(4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)
	assert.Equal(t, 6.0, v.RemainingKWh())

	got, err = v.Charge(11)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)
	assert.Equal(t, 0.0, v.RemainingKWh())
	assert.False(t, v.IsCharging())
}

func TestVehicle_ChargeWhenDoneFails(t *testing.T) {
	v, err := NewVehicle(1)
	require.NoError(t, err)
	_, err = v.Charge(1)
	require.NoError(t, err)
	_, err = v.Charge(1)
	assert.ErrorIs(t, err, ErrNotCharging)
}

func TestVehicle_ChargeNegativeEnergy(t *testing.T) {
	v, err := NewVehicle(1)
	require.NoError(t, err)
	_, err = v.Charge(-0.5)
	assert.ErrorIs(t, err, ErrInvalidEnergy)
	assert.Equal(t, 1.0, v.RemainingKWh())
}

func TestVehicle_NeverOverDelivers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		demand := 0.1 + rng.Float64()*80
		v, err := NewVehicle(demand)
		require.NoError(t, err)
		delivered := 0.0
		for v.IsCharging() {
			got, err := v.Charge(rng.Float64() * 12)
			require.NoError(t, err)
			delivered += got
		}
		assert.InDelta(t, demand, delivered, 1e-9)
		assert.LessOrEqual(t, delivered, demand+1e-9)
	}
}

func TestChargepoint_IsCharging(t *testing.T) {
	cp := NewChargepoint(11)
	assert.Equal(t, 11.0, cp.PowerKW)
	assert.False(t, cp.Occupied())
	assert.False(t, cp.IsCharging())

	v, err := NewVehicle(5)
	require.NoError(t, err)
	cp.Vehicle = v
	assert.True(t, cp.Occupied())
	assert.True(t, cp.IsCharging())

	_, err = v.Charge(5)
	require.NoError(t, err)
	assert.True(t, cp.Occupied())
	assert.False(t, cp.IsCharging())
}
