package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v,%t want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "warn",
		EnvLogTimestamp: "false",
		EnvLogNoColor:   "yes",
	}
	cfg := defaultConfig(ProfileRuntime)
	cfg.NoColor = false
	applyEnvOverrides(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Level != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamps disabled")
	}
	if cfg.NoColor {
		t.Fatalf("expected invalid bool to keep color setting")
	}
}

func TestNewWritesConsoleLines(t *testing.T) {
	var out bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &out})
	logger.Debug().Msg("hidden")
	logger.Info().Msgf("build.binary path=%s", ".build/ockam")
	got := out.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug line should be filtered: %q", got)
	}
	if !strings.Contains(got, "build.binary path=.build/ockam") {
		t.Fatalf("missing info line: %q", got)
	}
}
