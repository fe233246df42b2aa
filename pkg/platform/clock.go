package platform

import (
	"sync"
	"time"

	canplat "github.com/mlajoie/canplat"
)

// Clock provides the platform time base. It reports wall clock time
// until simulation is enabled, after which it only moves when the
// simulation time is advanced. Time never goes backwards.
type Clock struct {
	mu         sync.RWMutex
	simulation bool
	simTime    float64
}

func NewClock() *Clock {
	return &Clock{}
}

// CurrentTimeSeconds returns the current platform time in seconds.
// In wall clock mode this is the unix time with nanosecond resolution.
func (c *Clock) CurrentTimeSeconds() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.simulation {
		return c.simTime
	}
	return float64(time.Now().UnixNano()) / 1e9
}

// IsSimulation reports whether the clock runs on simulated time
func (c *Clock) IsSimulation() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.simulation
}

// EnableSimulation switches to simulated time, starting at zero.
// There is no way back to wall clock time, mixing the two time bases
// in one session would break timestamp ordering.
func (c *Clock) EnableSimulation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulation = true
}

// SetSimulationTime sets the simulated time in seconds. Values lower
// than the current simulated time are rejected.
func (c *Clock) SetSimulationTime(seconds float64) canplat.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.simulation {
		return canplat.StatusGeneralError
	}
	if seconds < c.simTime {
		return canplat.StatusInvalidParamValue
	}
	c.simTime = seconds
	return canplat.StatusOK
}

// AdvanceSimulationTime moves the simulated time forward by seconds
func (c *Clock) AdvanceSimulationTime(seconds float64) canplat.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.simulation {
		return canplat.StatusGeneralError
	}
	if seconds < 0 {
		return canplat.StatusInvalidParamValue
	}
	c.simTime += seconds
	return canplat.StatusOK
}
