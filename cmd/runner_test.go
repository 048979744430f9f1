package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	tu "github.com/Chaouesrex/spotify-gpt-bridge/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("With All Dependencies Provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := services.NewAPIService("http://localhost:9000", "secret", httpClient)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("With Nil Config Uses Defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.api == nil {
				t.Error("expected api service to be constructed")
			}
			if runner.palette == nil {
				t.Error("expected palette to be set")
			}
		})

		t.Run("With Nil Output Uses Stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("BridgeURL", func(t *testing.T) {
		t.Run("Wildcard Host Becomes Localhost", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Server.Host = "0.0.0.0"
			config.Server.Port = 8080

			if got := bridgeURL(config); got != "http://localhost:8080" {
				t.Errorf("expected http://localhost:8080, got %s", got)
			}
		})

		t.Run("Explicit Host Preserved", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Server.Host = "bridge.internal"
			config.Server.Port = 9090

			if got := bridgeURL(config); got != "http://bridge.internal:9090" {
				t.Errorf("expected http://bridge.internal:9090, got %s", got)
			}
		})
	})

	t.Run("WriteJSON", func(t *testing.T) {
		t.Run("Writes Data And Newline", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.HasSuffix(output.String(), "\n") {
				t.Error("expected trailing newline")
			}
		})

		t.Run("Write Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error for failing writer")
			}
		})

		t.Run("Newline Write Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: &tu.LimitedWriter{MaxWrites: 1, Target: &bytes.Buffer{}},
			})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error when newline write fails")
			}
		})
	})

	t.Run("Control", func(t *testing.T) {
		t.Run("Success Prints Confirmation", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.Header.Get("Authorization") != "Bearer cli_secret" {
					t.Errorf("expected bearer secret, got %s", r.Header.Get("Authorization"))
				}
				w.Write([]byte(`{"ok": true}`))
			}))
			defer server.Close()

			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{
				API:    services.NewAPIService(server.URL, "cli_secret", nil),
				Output: output,
			})

			if err := runner.control(context.Background(), "/pause", "Playback paused"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Playback paused") {
				t.Errorf("expected confirmation, got %s", output.String())
			}
		})

		t.Run("Bridge Error Surfaces Status And Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(`{"error": "no playback device available"}`))
			}))
			defer server.Close()

			runner := NewRunner(RunnerOpts{
				API:    services.NewAPIService(server.URL, "cli_secret", nil),
				Output: &bytes.Buffer{},
			})

			err := runner.control(context.Background(), "/play", "Playback resumed")
			if err == nil {
				t.Fatal("expected error for 409 response")
			}
			if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "no playback device") {
				t.Errorf("expected status and body in error, got %v", err)
			}
		})
	})
}
