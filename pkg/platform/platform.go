// Package platform assembles the clock, the CAN gateway and the
// telemetry logger into one runtime, wired to a shared time base.
package platform

import (
	"net/http"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/internal/metrics"
	"github.com/mlajoie/canplat/pkg/gateway"
	"github.com/mlajoie/canplat/pkg/telemetry"
	log "github.com/sirupsen/logrus"

	// Register the portable bus drivers, socketcanv2 stays opt-in
	_ "github.com/mlajoie/canplat/pkg/can/slcan"
	_ "github.com/mlajoie/canplat/pkg/can/socketcan"
	_ "github.com/mlajoie/canplat/pkg/can/virtual"
)

type Platform struct {
	Clock   *Clock
	Gateway *gateway.Gateway
	Logger  *telemetry.Logger

	metricsServer *http.Server
}

// New creates an empty platform with no buses attached. The gateway and
// logger timestamps come from the platform clock.
func New() *Platform {
	clock := NewClock()
	return &Platform{
		Clock:   clock,
		Gateway: gateway.New(gateway.WithClock(clock.CurrentTimeSeconds)),
		Logger:  telemetry.NewLogger(telemetry.WithClock(clock.CurrentTimeSeconds)),
	}
}

// FromConfig creates a platform, attaches the configured buses and
// applies the logger settings. A configuration with only virtual buses
// enables simulation even when the simulation flag is off.
func FromConfig(config Config) (*Platform, error) {
	clock := NewClock()
	if config.Simulation || config.allVirtual() {
		clock.EnableSimulation()
	}
	plat := &Platform{
		Clock:   clock,
		Gateway: gateway.New(gateway.WithClock(clock.CurrentTimeSeconds)),
		Logger: telemetry.NewLogger(
			telemetry.WithClock(clock.CurrentTimeSeconds),
			telemetry.WithQueueSize(config.LoggerQueueSize),
			telemetry.WithFlushInterval(config.LoggerFlushInterval),
		),
	}
	for _, busConfig := range config.Buses {
		_, err := plat.Gateway.Attach(busConfig.Name, busConfig.Interface, busConfig.Channel, busConfig.Bitrate)
		if err != nil {
			plat.Close()
			return nil, err
		}
	}
	if config.LoggerPath != "" {
		if status := plat.Logger.SetPath(config.LoggerPath); status.IsError() {
			log.Errorf("[PLATFORM] invalid logger path %v : %v", config.LoggerPath, status)
		}
	}
	if config.LoggerAutostart {
		if status := plat.Logger.Start(); status.IsError() {
			log.Errorf("[PLATFORM] failed to start logger : %v", status)
		}
	}
	if config.MetricsAddress != "" {
		plat.metricsServer = metrics.StartHTTP(config.MetricsAddress)
	}
	return plat, nil
}

// CurrentTimeSeconds returns the platform time in seconds
func (p *Platform) CurrentTimeSeconds() float64 {
	return p.Clock.CurrentTimeSeconds()
}

// IsSimulation reports whether the platform runs on simulated time
func (p *Platform) IsSimulation() bool {
	return p.Clock.IsSimulation()
}

// Close stops the logger and disconnects every bus
func (p *Platform) Close() {
	if status := p.Logger.Stop(); status != canplat.StatusOK {
		log.Errorf("[PLATFORM] error stopping logger : %v", status)
	}
	p.Gateway.Disconnect()
	if p.metricsServer != nil {
		p.metricsServer.Close()
	}
}
