package main

import (
	"log"

	"github.com/bikebuddy/bikebuddy-service/internal/bikebuddy"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	s := bikebuddy.New()
	s.Start()
}
