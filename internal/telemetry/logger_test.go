package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Level methods must be callable straight off L(), with or without a prior
// Init (the zero-value logger discards everything).
func TestDirectLevelCalls(t *testing.T) {
	L().Debug().Msg("direct_debug")
	L().Info().Str("k", "v").Msg("direct_info")
	L().Warn().Msg("direct_warn")
	L().Error().Msg("direct_error")

	bound := L().With().Str("module", "test").Logger()
	bound.Info().Msg("bound_info")
}

func TestInitWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.log")
	Init(Config{Level: "info", JSON: true, File: file})

	L().Info().Str("k", "v").Msg("file_sink_check")

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "file_sink_check") {
		t.Fatalf("log file missing event, got: %s", b)
	}
}

func TestInitDropsBelowLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.log")
	Init(Config{Level: "warn", JSON: true, File: file})

	L().Info().Msg("should_be_dropped")
	L().Warn().Msg("should_be_kept")

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "should_be_dropped") {
		t.Fatal("info event written despite warn level")
	}
	if !strings.Contains(string(b), "should_be_kept") {
		t.Fatalf("warn event missing, got: %s", b)
	}
}
