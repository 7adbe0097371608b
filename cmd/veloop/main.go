package main

import (
	"log"

	"github.com/Ayan-Alam-07/VELoop-Backend/internal/app"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := app.Run(cfg); err != nil {
		log.Fatalf("app: %v", err)
	}
}
