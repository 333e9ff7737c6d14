package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// TestHealthEndpoint checks a locally running instance. It is skipped in
// short mode so unit runs never need a live service.
func TestHealthEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		t.Skipf("service not running locally: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK       bool   `json:"ok"`
		Cache    string `json:"cache"`
		Database string `json:"database"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if resp.StatusCode == http.StatusOK && !body.OK {
		t.Error("status 200 must mean all backing stores are connected")
	}
}

func TestSetupLoggerNeverReturnsNil(t *testing.T) {
	for _, env := range []string{envLocal, envDev, envProd, "unknown"} {
		if setupLogger(env) == nil {
			t.Errorf("setupLogger(%q) returned nil", env)
		}
	}
}
