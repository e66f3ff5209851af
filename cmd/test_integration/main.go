// Command test_integration drives a running API server through one session:
// two batches, a replace pass and a confirmed removal.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Creating session...")
	var created struct {
		ID string `json:"id"`
	}
	namespace := fmt.Sprintf("Smoke%d", time.Now().Unix())
	mustRequest(baseURL, http.MethodPost, "/sessions", map[string]string{"namespace": namespace}, http.StatusCreated, &created)
	session := "/sessions/" + created.ID
	fmt.Println("PASSED: Create session", created.ID)

	fmt.Println("2. Merging batches...")
	mustRequest(baseURL, http.MethodPost, session+"/batches", map[string]any{
		"batch_id": "design.md",
		"candidates": []map[string]any{
			{"name": "主梁", "category": "设备和组件", "description": "承重构件"},
			{"name": "桥墩", "category": "设备和组件"},
		},
	}, http.StatusOK, nil)
	mustRequest(baseURL, http.MethodPost, session+"/batches", map[string]any{
		"batch_id":   "design.md",
		"mode":       "replace",
		"candidates": []map[string]any{{"name": "主梁", "category": "设备和组件"}},
	}, http.StatusOK, nil)
	fmt.Println("PASSED: Merge batches")

	fmt.Println("3. Confirming removals...")
	var removed struct {
		Removed int `json:"removed"`
	}
	mustRequest(baseURL, http.MethodPost, session+"/removals", map[string]any{"keys": []any{}}, http.StatusOK, &removed)
	if removed.Removed != 1 {
		fail("expected 1 removal, got %d", removed.Removed)
	}
	fmt.Println("PASSED: Confirm removals")

	fmt.Println("4. Fetching schema...")
	var snapshot struct {
		Schema string `json:"schema"`
	}
	mustRequest(baseURL, http.MethodGet, session+"/schema", nil, http.StatusOK, &snapshot)
	if !strings.Contains(snapshot.Schema, "主梁(主梁): EntityType") || strings.Contains(snapshot.Schema, "桥墩") {
		fail("unexpected schema:\n%s", snapshot.Schema)
	}
	fmt.Println("PASSED: Fetch schema")

	mustRequest(baseURL, http.MethodDelete, session, nil, http.StatusNoContent, nil)
	fmt.Println("All checks passed.")
}

func mustRequest(baseURL, method, endpoint string, payload any, wantStatus int, out any) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fail("Error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		fail("%s %s failed with status %d: %s", method, endpoint, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fail("Error decoding response: %v", err)
		}
	}
}

func fail(format string, args ...any) {
	fmt.Printf("FAILED: "+format+"\n", args...)
	os.Exit(1)
}
