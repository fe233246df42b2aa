package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlajoie/canplat/pkg/can/virtual"
	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "canplat.ini")
	assert.Nil(t, os.WriteFile(name, []byte(content), 0644))
	return name
}

func TestLoadConfig(t *testing.T) {
	file := writeConfig(t, `
[platform]
simulation = true
metrics_address = :9100

[logger]
path = /var/log/canplat
autostart = true
queue_size = 128
flush_interval_ms = 50

[can.drive]
interface = socketcan
channel = can0
bitrate = 1000000

[can.aux]
interface = virtualcan
channel = 127.0.0.1:18889
`)
	config, err := LoadConfig(file)
	assert.Nil(t, err)
	assert.True(t, config.Simulation)
	assert.Equal(t, ":9100", config.MetricsAddress)
	assert.Equal(t, "/var/log/canplat", config.LoggerPath)
	assert.True(t, config.LoggerAutostart)
	assert.Equal(t, 128, config.LoggerQueueSize)
	assert.Equal(t, 50*time.Millisecond, config.LoggerFlushInterval)
	assert.Len(t, config.Buses, 2)
	assert.Equal(t, BusConfig{Name: "aux", Interface: "virtualcan", Channel: "127.0.0.1:18889", Bitrate: 500000}, config.Buses[0])
	assert.Equal(t, BusConfig{Name: "drive", Interface: "socketcan", Channel: "can0", Bitrate: 1000000}, config.Buses[1])
}

func TestLoadConfigDefaults(t *testing.T) {
	file := writeConfig(t, "")
	config, err := LoadConfig(file)
	assert.Nil(t, err)
	assert.False(t, config.Simulation)
	assert.False(t, config.LoggerAutostart)
	assert.Empty(t, config.Buses)
	assert.Equal(t, 4096, config.LoggerQueueSize)

	_, err = LoadConfig("/does/not/exist.ini")
	assert.NotNil(t, err)
}

func TestAllVirtualEnablesSimulation(t *testing.T) {
	broker := virtual.NewBroker()
	addr, err := broker.Listen("127.0.0.1:0")
	assert.Nil(t, err)
	defer broker.Stop()

	config := DefaultConfig()
	config.Buses = []BusConfig{{Name: "sim", Interface: "virtualcan", Channel: addr, Bitrate: 500000}}
	plat, err := FromConfig(config)
	assert.Nil(t, err)
	defer plat.Close()
	assert.True(t, plat.IsSimulation())
	assert.Equal(t, []string{"sim"}, plat.Gateway.Buses())
	assert.Equal(t, 0.0, plat.CurrentTimeSeconds())
}

func TestFromConfigLoggerAutostart(t *testing.T) {
	config := DefaultConfig()
	config.LoggerPath = t.TempDir()
	config.LoggerAutostart = true
	plat, err := FromConfig(config)
	assert.Nil(t, err)
	defer plat.Close()
	assert.False(t, plat.IsSimulation())
	assert.True(t, plat.Logger.Running())
}

func TestNewPlatformSharesClock(t *testing.T) {
	plat := New()
	defer plat.Close()
	plat.Clock.EnableSimulation()
	plat.Clock.SetSimulationTime(42)
	assert.Equal(t, 42.0, plat.CurrentTimeSeconds())
}
