package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/testutil/testlog"
)

func noEnv(string) (string, bool) { return "", false }

func execute(args ...string) error {
	cmd := newRootCmd(noEnv)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestWriteThenValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ockamctl.toml")

	if err := execute("--output", path); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := execute("--validate", "--input", path); err != nil {
		t.Fatalf("validate template: %v", err)
	}
	if err := execute("--output", path); err == nil {
		t.Fatalf("expected refusal to overwrite without --force")
	}
	if err := execute("--output", path, "--force"); err != nil {
		t.Fatalf("overwrite with --force: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ockamctl.toml")
	if err := os.WriteFile(path, []byte("[tools]\nengine = \"podman\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := execute("--validate", "--input", path)
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateMissingFile(t *testing.T) {
	testlog.Start(t)
	err := execute("--validate", "--input", filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
