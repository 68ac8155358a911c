package main

import (
	"log"

	"github.com/MrSnakeDoc/multisite/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ multisite stopped with error: %v", err)
	}
}
