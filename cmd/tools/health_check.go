package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Simple health check utility for deployment probes and local debugging.

type healthReport struct {
	OK       bool   `json:"ok"`
	Cache    string `json:"cache"`
	Database string `json:"database"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the service")
	flag.Parse()

	fmt.Println("decktracker Health Check Utility")
	fmt.Println("--------------------------------")

	report, err := checkServiceHealth(*addr + "/health")
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("cache: %s, database: %s\n", report.Cache, report.Database)
	if report.OK {
		fmt.Println("Service is healthy!")
		return
	}
	fmt.Println("Service is NOT healthy!")
	os.Exit(1)
}

func checkServiceHealth(url string) (*healthReport, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &report, nil
}
