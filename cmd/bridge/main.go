package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"xk852-bridge/config"
	"xk852-bridge/internal/bridge"
	"xk852-bridge/pkg/logger"
)

func main() {
	mode := flag.String("mode", "production", "device backend: production or simulator")
	flag.Parse()

	cfg, err := config.LoadConfig(*mode)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Init(logger.INFO, "./logs")
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	manager := bridge.NewManager(cfg)
	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start bridge: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	if err := manager.Stop(); err != nil {
		logger.Error("Failed to stop bridge: %v", err)
	}
}
