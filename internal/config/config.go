package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/platform"
	"github.com/danmuck/ockamctl/internal/release"
	"github.com/danmuck/ockamctl/internal/toolenv"
)

const (
	DefaultPath = "ockamctl.toml"

	EnvGOOS        = "GOOS"
	EnvGOARCH      = "GOARCH"
	EnvBuildKit    = "DOCKER_BUILDKIT"
	EnvTrace       = "TRACE"
	EnvToolQuiet   = "OCKAM_TOOL_QUIET"
	EnvMetricsFile = "OCKAMCTL_METRICS_FILE"
)

var ErrInvalidConfig = fmt.Errorf("%w: invalid config", failure.ErrConfiguration)

// Config is the resolved project configuration.
type Config struct {
	Package     string
	VersionFile string
	MainPackage string
	BuildDir    string
	VendorDir   string
	InstallDir  string
	MetricsFile string
	Tools       ToolsConfig
	Platforms   []platform.Platform
	Linters     []Linter
	TestArgs    []string
	Env         Env
}

// ToolsConfig selects and configures the tool engine.
type ToolsConfig struct {
	Engine     string
	Namespace  string
	ContextDir string
	Dockerfile string
	MountPath  string
	Docker     string
	BuildKit   bool
}

// Linter is one lint tool environment and the arguments it runs with.
type Linter struct {
	Name string   `toml:"name"`
	Args []string `toml:"args"`
}

// Env holds the process-environment inputs.
type Env struct {
	Overrides platform.Overrides
	Trace     bool
	Quiet     bool
}

// Mode is the execution mode selected by TRACE and OCKAM_TOOL_QUIET.
func (c Config) Mode() toolenv.Mode {
	return toolenv.ResolveMode(c.Env.Trace, c.Env.Quiet)
}

// Linter returns the named linter.
func (c Config) Linter(name string) (Linter, bool) {
	for _, l := range c.Linters {
		if l.Name == name {
			return l, true
		}
	}
	return Linter{}, false
}

func Default() Config {
	return Config{
		Package:     "ockam",
		VersionFile: "main.go",
		MainPackage: ".",
		BuildDir:    ".build",
		VendorDir:   "vendor",
		InstallDir:  "/usr/local/bin",
		Tools: ToolsConfig{
			Engine:     toolenv.EngineDocker,
			Namespace:  "ockam/tool",
			ContextDir: "tools/docker",
			MountPath:  toolenv.DefaultMountPath,
			Docker:     "docker",
			BuildKit:   true,
		},
		Platforms: release.DefaultPlatforms(),
		Linters: []Linter{
			{Name: "eclint", Args: []string{"check"}},
			{Name: "golangci-lint", Args: []string{"run", "./..."}},
		},
		TestArgs: []string{"test", "-v", "./..."},
	}
}

type fileConfig struct {
	Package     string      `toml:"package"`
	VersionFile string      `toml:"version_file"`
	MainPackage string      `toml:"main_package"`
	BuildDir    string      `toml:"build_dir"`
	VendorDir   string      `toml:"vendor_dir"`
	InstallDir  string      `toml:"install_dir"`
	MetricsFile string      `toml:"metrics_file"`
	Tools       fileTools   `toml:"tools"`
	Release     fileRelease `toml:"release"`
	Lint        []Linter    `toml:"lint"`
	Test        fileTest    `toml:"test"`
}

type fileTools struct {
	Engine     string `toml:"engine"`
	Namespace  string `toml:"namespace"`
	ContextDir string `toml:"context_dir"`
	Dockerfile string `toml:"dockerfile"`
	MountPath  string `toml:"mount_path"`
	Docker     string `toml:"docker"`
}

type fileRelease struct {
	Platforms []platform.Platform `toml:"platforms"`
}

type fileTest struct {
	Args []string `toml:"args"`
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is only an error when required is set.
func Load(path string, required bool, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := loadFile(path, required, &cfg); err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg, lookup)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, required bool, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", failure.ErrConfiguration, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: %s: unknown key %s", ErrInvalidConfig, path, undecoded[0].String())
	}

	setString(meta, "package", raw.Package, &cfg.Package)
	setString(meta, "version_file", raw.VersionFile, &cfg.VersionFile)
	setString(meta, "main_package", raw.MainPackage, &cfg.MainPackage)
	setString(meta, "build_dir", raw.BuildDir, &cfg.BuildDir)
	setString(meta, "vendor_dir", raw.VendorDir, &cfg.VendorDir)
	setString(meta, "install_dir", raw.InstallDir, &cfg.InstallDir)
	setString(meta, "metrics_file", raw.MetricsFile, &cfg.MetricsFile)

	setString(meta, "tools.engine", raw.Tools.Engine, &cfg.Tools.Engine)
	setString(meta, "tools.namespace", raw.Tools.Namespace, &cfg.Tools.Namespace)
	setString(meta, "tools.context_dir", raw.Tools.ContextDir, &cfg.Tools.ContextDir)
	setString(meta, "tools.dockerfile", raw.Tools.Dockerfile, &cfg.Tools.Dockerfile)
	setString(meta, "tools.mount_path", raw.Tools.MountPath, &cfg.Tools.MountPath)
	setString(meta, "tools.docker", raw.Tools.Docker, &cfg.Tools.Docker)

	if meta.IsDefined("release", "platforms") {
		cfg.Platforms = raw.Release.Platforms
	}
	if meta.IsDefined("lint") {
		cfg.Linters = raw.Lint
	}
	if meta.IsDefined("test", "args") {
		cfg.TestArgs = raw.Test.Args
	}
	return nil
}

func setString(meta toml.MetaData, key string, value string, dst *string) {
	if !meta.IsDefined(strings.Split(key, ".")...) {
		return
	}
	*dst = strings.TrimSpace(value)
}

// ApplyEnv overlays the recognized environment variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	cfg.Env.Overrides = platform.Overrides{OS: get(EnvGOOS), Arch: get(EnvGOARCH)}
	cfg.Env.Trace = envFlag(get(EnvTrace))
	cfg.Env.Quiet = envFlag(get(EnvToolQuiet))
	if raw, ok := lookup(EnvBuildKit); ok && strings.TrimSpace(raw) != "" {
		cfg.Tools.BuildKit = envFlag(raw)
	}
	if path := strings.TrimSpace(get(EnvMetricsFile)); path != "" {
		cfg.MetricsFile = path
	}
}

// envFlag follows shell conventions: any non-empty value enables the flag
// unless it reads as false.
func envFlag(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func Validate(cfg Config) error {
	required := map[string]string{
		"package":           cfg.Package,
		"version_file":      cfg.VersionFile,
		"main_package":      cfg.MainPackage,
		"build_dir":         cfg.BuildDir,
		"vendor_dir":        cfg.VendorDir,
		"tools.namespace":   cfg.Tools.Namespace,
		"tools.context_dir": cfg.Tools.ContextDir,
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
		}
	}
	switch cfg.Tools.Engine {
	case toolenv.EngineDocker, toolenv.EngineDagger:
	default:
		return fmt.Errorf("%w: tools.engine=%q must be docker or dagger", ErrInvalidConfig, cfg.Tools.Engine)
	}
	if len(cfg.Platforms) == 0 {
		return fmt.Errorf("%w: release.platforms is empty", ErrInvalidConfig)
	}
	for i, p := range cfg.Platforms {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: release.platforms[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	seen := make(map[string]struct{}, len(cfg.Linters))
	for i, l := range cfg.Linters {
		if err := toolenv.ToolName(l.Name).Validate(); err != nil {
			return fmt.Errorf("%w: lint[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, dup := seen[l.Name]; dup {
			return fmt.Errorf("%w: lint[%d]: duplicate linter %q", ErrInvalidConfig, i, l.Name)
		}
		seen[l.Name] = struct{}{}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
