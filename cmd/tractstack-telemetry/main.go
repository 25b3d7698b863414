package main

import (
	"log"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/application/startup"
)

func main() {
	if err := startup.Initialize(); err != nil {
		log.Fatalf("Telemetry service startup failed: %v", err)
	}

	log.Println("Telemetry service has shut down gracefully.")
}
