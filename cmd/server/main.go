// cmd/server/main.go
package main

import (
	"fmt"
	"os"

	"github.com/formbridge/formbridge-backend/api"
	"github.com/formbridge/formbridge-backend/config"
	"github.com/formbridge/formbridge-backend/internal/logger"
	"github.com/formbridge/formbridge-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting FormBridge backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize Application Database Connection
	appDB, err := storage.ConnectAppDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize application database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing application database connection...")
		if err := appDB.Close(); err != nil {
			customLog.Printf("Error closing application database: %v", err)
		}
	}()

	// 3. Setup Router (passing dependencies)
	router := api.SetupRouter(appDB, cfg)

	// 4. Start Server
	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
