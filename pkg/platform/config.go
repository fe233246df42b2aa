package platform

import (
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// BusConfig describes one CAN bus attachment, read from a [can.NAME]
// section of the configuration file.
type BusConfig struct {
	Name      string
	Interface string
	Channel   string
	Bitrate   int
}

// Config is the platform configuration, usually loaded from an ini file
type Config struct {
	Simulation     bool
	MetricsAddress string

	LoggerPath          string
	LoggerAutostart     bool
	LoggerQueueSize     int
	LoggerFlushInterval time.Duration

	Buses []BusConfig
}

// DefaultConfig returns a configuration with no buses, wall clock time
// and the logger stopped.
func DefaultConfig() Config {
	return Config{
		LoggerQueueSize:     4096,
		LoggerFlushInterval: 100 * time.Millisecond,
	}
}

// LoadConfig reads a platform configuration file. Example :
//
//	[platform]
//	simulation = false
//	metrics_address = :9100
//
//	[logger]
//	path = /var/log/canplat
//	autostart = true
//
//	[can.drive]
//	interface = socketcan
//	channel = can0
//	bitrate = 500000
func LoadConfig(file string) (Config, error) {
	config := DefaultConfig()
	iniFile, err := ini.Load(file)
	if err != nil {
		return config, err
	}
	if section, err := iniFile.GetSection("platform"); err == nil {
		config.Simulation = section.Key("simulation").MustBool(false)
		config.MetricsAddress = section.Key("metrics_address").String()
	}
	if section, err := iniFile.GetSection("logger"); err == nil {
		config.LoggerPath = section.Key("path").String()
		config.LoggerAutostart = section.Key("autostart").MustBool(false)
		config.LoggerQueueSize = section.Key("queue_size").MustInt(config.LoggerQueueSize)
		flushMs := section.Key("flush_interval_ms").MustInt(int(config.LoggerFlushInterval / time.Millisecond))
		config.LoggerFlushInterval = time.Duration(flushMs) * time.Millisecond
	}
	for _, section := range iniFile.Sections() {
		name, found := strings.CutPrefix(section.Name(), "can.")
		if !found {
			continue
		}
		config.Buses = append(config.Buses, BusConfig{
			Name:      name,
			Interface: section.Key("interface").MustString("virtualcan"),
			Channel:   section.Key("channel").String(),
			Bitrate:   section.Key("bitrate").MustInt(500000),
		})
	}
	sort.Slice(config.Buses, func(i, j int) bool {
		return config.Buses[i].Name < config.Buses[j].Name
	})
	return config, nil
}

// allVirtual reports whether every configured bus is a virtual one.
// A setup with only virtual buses runs on simulated time by default.
func (c *Config) allVirtual() bool {
	if len(c.Buses) == 0 {
		return false
	}
	for _, bus := range c.Buses {
		if bus.Interface != "virtualcan" {
			return false
		}
	}
	return true
}
