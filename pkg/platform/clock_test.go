package platform

import (
	"testing"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/stretchr/testify/assert"
)

func TestWallClock(t *testing.T) {
	clock := NewClock()
	assert.False(t, clock.IsSimulation())
	before := float64(time.Now().UnixNano()) / 1e9
	now := clock.CurrentTimeSeconds()
	after := float64(time.Now().UnixNano()) / 1e9
	assert.GreaterOrEqual(t, now, before)
	assert.LessOrEqual(t, now, after)

	// Simulation controls are rejected in wall clock mode
	assert.True(t, clock.SetSimulationTime(10).IsError())
	assert.True(t, clock.AdvanceSimulationTime(1).IsError())
}

func TestSimulationClock(t *testing.T) {
	clock := NewClock()
	clock.EnableSimulation()
	assert.True(t, clock.IsSimulation())
	assert.Equal(t, 0.0, clock.CurrentTimeSeconds())

	assert.Equal(t, canplat.StatusOK, clock.SetSimulationTime(10.5))
	assert.Equal(t, 10.5, clock.CurrentTimeSeconds())
	assert.Equal(t, canplat.StatusOK, clock.AdvanceSimulationTime(0.5))
	assert.Equal(t, 11.0, clock.CurrentTimeSeconds())
}

func TestSimulationTimeNeverGoesBackwards(t *testing.T) {
	clock := NewClock()
	clock.EnableSimulation()
	clock.SetSimulationTime(100)
	assert.Equal(t, canplat.StatusInvalidParamValue, clock.SetSimulationTime(99))
	assert.Equal(t, canplat.StatusInvalidParamValue, clock.AdvanceSimulationTime(-1))
	assert.Equal(t, 100.0, clock.CurrentTimeSeconds())
}
