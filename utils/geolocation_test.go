package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance(t *testing.T) {
	// Same point.
	assert.Zero(t, CalculateDistance(19.0760, 72.8777, 19.0760, 72.8777))

	// 0.01 degrees of latitude is roughly 1.11 km.
	d := CalculateDistance(19.0760, 72.8777, 19.0860, 72.8777)
	assert.InDelta(t, 1112, d, 5)

	// Mumbai to Pune, roughly 120 km.
	km := CalculateDistanceKm(19.0760, 72.8777, 18.5204, 73.8567)
	assert.InDelta(t, 120, km, 5)
}

func TestIsWithinRadius(t *testing.T) {
	assert.True(t, IsWithinRadius(19.0805, 72.8777, 19.0760, 72.8777, 1.0))
	assert.False(t, IsWithinRadius(19.0960, 72.8777, 19.0760, 72.8777, 1.0))
}

func TestGridCellKey(t *testing.T) {
	// Points in the same 0.01 degree cell share a key.
	assert.Equal(t, GridCellKey(19.0760, 72.8777), GridCellKey(19.0769, 72.8771))
	assert.NotEqual(t, GridCellKey(19.0760, 72.8777), GridCellKey(19.0860, 72.8777))

	// Negative coordinates bucket by floor, not truncation.
	assert.Equal(t, "-33.87:151.20", GridCellKey(-33.8651, 151.2099))
}

func TestGridCellCenter(t *testing.T) {
	center := GridCellCenter(19.0764, 72.8772)
	assert.InDelta(t, 19.075, center.Latitude, 1e-9)
	assert.InDelta(t, 72.875, center.Longitude, 1e-9)
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(0, 0))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.5))
}
