package shared

import (
	"bytes"
	"strings"
	"testing"
)

func TestShared(t *testing.T) {
	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		logger.Info("test message", "key", "value")

		output := buf.String()
		if !strings.Contains(output, "test message") {
			t.Error("expected message in log output")
		}
		if !strings.Contains(output, "value") {
			t.Error("expected key-value pair in log output")
		}
	})

	t.Run("NewLogger With Nil Writer", func(t *testing.T) {
		logger := NewLogger(nil)
		if logger == nil {
			t.Fatal("expected logger to be created")
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")

		logger.Info("hello")

		if !strings.Contains(buf.String(), "component") {
			t.Error("expected attached key in log output")
		}
	})

	t.Run("GenerateID", func(t *testing.T) {
		first := GenerateID()
		second := GenerateID()

		if first == "" || second == "" {
			t.Fatal("expected non-empty ids")
		}
		if first == second {
			t.Error("expected unique ids")
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		data := map[string]string{"key": "value"}

		t.Run("Compact", func(t *testing.T) {
			out, err := MarshalJSON(data, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if strings.Contains(string(out), "\n") {
				t.Error("expected compact output")
			}
		})

		t.Run("Pretty", func(t *testing.T) {
			out, err := MarshalJSON(data, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(string(out), "  ") {
				t.Error("expected indented output")
			}
		})

		t.Run("Unmarshalable Value", func(t *testing.T) {
			if _, err := MarshalJSON(make(chan int), false); err == nil {
				t.Error("expected error for unmarshalable value")
			}
		})
	})
}

func TestOpenBrowser(t *testing.T) {
	t.Run("Unsupported Platform", func(t *testing.T) {
		original := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = original }()

		if err := OpenBrowser("http://localhost:8080/login"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
