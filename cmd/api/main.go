package main

import (
	"log"

	"poll-service/internal/server"
)

// @title Poll Service API
// @version 1.0
// @description REST API for creating polls, voting, liking and commenting.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	application, err := server.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
