package main

// Standalone virtual CAN broker. Virtual buses connect to it over TCP
// and every frame is forwarded to all the other clients.

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlajoie/canplat/pkg/can/virtual"
	log "github.com/sirupsen/logrus"
)

var DEFAULT_LISTEN_ADDRESS = "127.0.0.1:18889"

func main() {
	log.SetLevel(log.DebugLevel)
	address := flag.String("a", DEFAULT_LISTEN_ADDRESS, "listen address")
	flag.Parse()

	broker := virtual.NewBroker()
	addr, err := broker.Listen(*address)
	if err != nil {
		log.Errorf("[MAIN] failed to listen on %v : %v", *address, err)
		os.Exit(1)
	}
	defer broker.Stop()
	log.Infof("[MAIN] virtual CAN broker listening on %v", addr)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	log.Info("[MAIN] shutting down")
}
