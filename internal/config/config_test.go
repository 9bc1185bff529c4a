package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/platform"
	"github.com/danmuck/ockamctl/internal/toolenv"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath), false, lookupFrom(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
	if cfg.Mode() != toolenv.ModeNormal {
		t.Fatalf("expected normal mode, got %s", cfg.Mode())
	}
}

func TestLoadMissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true, lookupFrom(nil))
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
package = "ockamd"
build_dir = "out"

[tools]
engine = "dagger"
namespace = "acme/tool"

[release]
platforms = [{ os = "linux", arch = "amd64" }]

[[lint]]
name = "shellcheck"
args = ["-x", "build.sh"]
`)
	cfg, err := Load(path, true, lookupFrom(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Package != "ockamd" || cfg.BuildDir != "out" {
		t.Fatalf("unexpected package/build dir: %q %q", cfg.Package, cfg.BuildDir)
	}
	if cfg.VersionFile != "main.go" || cfg.Tools.ContextDir != "tools/docker" {
		t.Fatalf("expected defaults for undefined keys, got %+v", cfg)
	}
	if cfg.Tools.Engine != toolenv.EngineDagger || cfg.Tools.Namespace != "acme/tool" {
		t.Fatalf("unexpected tools config %+v", cfg.Tools)
	}
	if diff := cmp.Diff([]platform.Platform{{OS: "linux", Arch: "amd64"}}, cfg.Platforms); diff != "" {
		t.Fatalf("unexpected platforms (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Linter{{Name: "shellcheck", Args: []string{"-x", "build.sh"}}}, cfg.Linters); diff != "" {
		t.Fatalf("unexpected linters (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "pakage = \"typo\"\n")
	if _, err := Load(path, true, lookupFrom(nil)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsInvalidPlatforms(t *testing.T) {
	path := writeConfig(t, "[release]\nplatforms = [{ os = \"linux\" }]\n")
	if _, err := Load(path, true, lookupFrom(nil)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	ApplyEnv(&cfg, lookupFrom(map[string]string{
		EnvGOOS:        "windows",
		EnvGOARCH:      "amd64",
		EnvBuildKit:    "0",
		EnvTrace:       "1",
		EnvToolQuiet:   "yes",
		EnvMetricsFile: ".build/metrics.prom",
	}))
	if cfg.Env.Overrides != (platform.Overrides{OS: "windows", Arch: "amd64"}) {
		t.Fatalf("unexpected overrides %+v", cfg.Env.Overrides)
	}
	if cfg.Tools.BuildKit {
		t.Fatalf("expected buildkit disabled")
	}
	if !cfg.Env.Trace || !cfg.Env.Quiet {
		t.Fatalf("expected trace and quiet, got %+v", cfg.Env)
	}
	if cfg.Mode() != toolenv.ModeTraced {
		t.Fatalf("expected traced to win over quiet, got %s", cfg.Mode())
	}
	if cfg.MetricsFile != ".build/metrics.prom" {
		t.Fatalf("unexpected metrics file %q", cfg.MetricsFile)
	}
}

func TestApplyEnvBuildKitDefaultsOn(t *testing.T) {
	for _, raw := range []string{"", "1", "true"} {
		cfg := Default()
		ApplyEnv(&cfg, lookupFrom(map[string]string{EnvBuildKit: raw, EnvToolQuiet: "false"}))
		if !cfg.Tools.BuildKit {
			t.Fatalf("DOCKER_BUILDKIT=%q: expected enabled", raw)
		}
		if cfg.Env.Quiet {
			t.Fatalf("expected OCKAM_TOOL_QUIET=false to stay disabled")
		}
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := Load(path, true, lookupFrom(nil))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("template drifted from defaults (-want +got):\n%s", diff)
	}
}
