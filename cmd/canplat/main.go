package main

// Runs the platform from a configuration file, periodically dumps bus
// traffic to the console and mirrors it to the telemetry log.

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/pkg/platform"
	log "github.com/sirupsen/logrus"
)

var DEFAULT_CONFIG_PATH = "canplat.ini"

func main() {
	log.SetLevel(log.DebugLevel)
	configPath := flag.String("c", DEFAULT_CONFIG_PATH, "configuration file path")
	verbose := flag.Bool("v", false, "log every received frame")
	flag.Parse()

	config, err := platform.LoadConfig(*configPath)
	if err != nil {
		log.Errorf("[MAIN] failed to load %v : %v", *configPath, err)
		os.Exit(1)
	}
	plat, err := platform.FromConfig(config)
	if err != nil {
		log.Errorf("[MAIN] failed to start platform : %v", err)
		os.Exit(1)
	}
	defer plat.Close()
	log.Infof("[MAIN] platform running, simulation : %v, buses : %v",
		plat.IsSimulation(), plat.Gateway.Buses())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	buf := make([]byte, canplat.MaxFrameDataLength)
	for {
		select {
		case <-interrupt:
			log.Info("[MAIN] shutting down")
			return
		case <-ticker.C:
			for _, busName := range plat.Gateway.Buses() {
				for {
					id, n, status := plat.Gateway.ReceiveAny(buf, busName, false)
					if status != canplat.StatusOK {
						break
					}
					if *verbose {
						log.Infof("[MAIN] %v : id x%x data %v", busName, id, buf[:n])
					}
					plat.Logger.WriteRaw("bus/"+busName, buf[:n], "")
				}
			}
		}
	}
}
