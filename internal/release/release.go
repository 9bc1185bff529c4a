// Package release repeats a single-platform build across the release matrix.
//
// Platforms are built one at a time, in order. The first failure aborts the
// matrix; artifacts already produced stay on disk.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/platform"
)

// DefaultPlatforms is the release matrix, in build order.
func DefaultPlatforms() []platform.Platform {
	return []platform.Platform{
		{OS: "linux", Arch: "amd64"},
		{OS: "linux", Arch: "arm64"},
		{OS: "darwin", Arch: "amd64"},
		{OS: "windows", Arch: "amd64"},
	}
}

// BuildFunc builds one platform and returns its artifact path.
type BuildFunc func(ctx context.Context, p platform.Platform) (string, error)

// Artifact is one built binary.
type Artifact struct {
	OS   string `toml:"os"`
	Arch string `toml:"arch"`
	Path string `toml:"path"`
}

// Run builds every platform in order and stops at the first failure. The
// artifacts built before the failure are returned alongside the error.
func Run(ctx context.Context, platforms []platform.Platform, build BuildFunc) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(platforms))
	for i, p := range platforms {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		log.Info().Msgf("release.build platform=%s step=%d/%d", p, i+1, len(platforms))
		path, err := build(ctx, p)
		if err != nil {
			return artifacts, fmt.Errorf("release %s: %w", p, err)
		}
		artifacts = append(artifacts, Artifact{OS: p.OS, Arch: p.Arch, Path: path})
	}
	return artifacts, nil
}

// Manifest describes a complete release.
type Manifest struct {
	Package   string     `toml:"package"`
	Version   string     `toml:"version"`
	Artifacts []Artifact `toml:"artifacts"`
}

const ManifestName = "release.toml"

// WriteManifest writes m to buildDir/release.toml and returns the path.
func WriteManifest(buildDir string, m Manifest) (string, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode release manifest: %w", err)
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(buildDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode release manifest %s: %w", path, err)
	}
	return m, nil
}
