package main

import (
	"os"

	"askcampus/backend/internal/app"
)

// @title        AskCampus Backend API
// @version      1.0
// @description  Conversation session engine and storage gateway.
// @BasePath     /
func main() {
	os.Exit(app.Run())
}
