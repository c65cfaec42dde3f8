package main

import (
	"flag"
	"log"

	"xk852-bridge/config"
	"xk852-bridge/internal/runner"
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

	app, err := runner.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	app.Run()
}
