// Command smoke probes a running exam-portal-api instance and verifies the
// core surface responds as expected. Intended for post-deploy checks.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type check struct {
	Method   string
	Path     string
	Status   int
	Auth     bool
	Critical bool
}

type outcome struct {
	Check    check
	Status   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base     string
		username string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&username, "username", "admin", "login username")
	flag.StringVar(&password, "password", "admin123", "login password")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	token, err := login(client, base, username, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	checks := []check{
		{Method: http.MethodGet, Path: "/health", Status: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", Status: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/metrics", Status: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/exams", Status: http.StatusOK, Auth: true, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/results", Status: http.StatusOK, Auth: true, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/results/keys", Status: http.StatusOK, Auth: true},
		{Method: http.MethodGet, Path: "/api/v1/results/count", Status: http.StatusOK, Auth: true},
		{Method: http.MethodGet, Path: "/api/v1/admin/accounts", Status: http.StatusOK, Auth: true},
		{Method: http.MethodGet, Path: "/api/v1/admin/templates/questions", Status: http.StatusOK, Auth: true},
		{Method: http.MethodGet, Path: "/api/v1/exams", Status: http.StatusUnauthorized},
	}

	failures := 0
	for _, c := range checks {
		result := run(client, base, token, c)
		status := "ok"
		if result.Err != nil || result.Status != c.Status {
			if c.Critical {
				status = "FAIL"
				failures++
			} else {
				status = "warn"
			}
		}
		if result.Err != nil {
			fmt.Printf("%-4s %-6s %-40s error: %v\n", status, c.Method, c.Path, result.Err)
			continue
		}
		fmt.Printf("%-4s %-6s %-40s got %d want %d in %s\n",
			status, c.Method, c.Path, result.Status, c.Status, result.Duration.Round(time.Millisecond))
	}

	if failures > 0 {
		fmt.Printf("critical failures: %d\n", failures)
		os.Exit(1)
	}
	fmt.Println("smoke check passed")
}

func login(client *http.Client, base, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(strings.TrimRight(base, "/")+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("no token in login response")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base, token string, c check) outcome {
	url := strings.TrimRight(base, "/") + c.Path
	req, err := http.NewRequest(c.Method, url, nil)
	if err != nil {
		return outcome{Check: c, Err: err}
	}
	if c.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return outcome{Check: c, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	return outcome{Check: c, Status: resp.StatusCode, Duration: time.Since(start)}
}
