// Package platform resolves the (os, arch) pair a binary is built for.
//
// Explicit overrides (GOOS/GOARCH) always win. Without them the host is
// inspected through the Host interface so tests never depend on the machine
// they run on.
package platform

import (
	"fmt"
	"strings"

	"github.com/danmuck/ockamctl/internal/failure"
)

var (
	ErrUnsupportedArchitecture = fmt.Errorf("%w: unsupported architecture", failure.ErrConfiguration)
	ErrInvalidPlatform         = fmt.Errorf("%w: invalid platform", failure.ErrConfiguration)
)

// Platform is one build target.
type Platform struct {
	OS   string `toml:"os"`
	Arch string `toml:"arch"`
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Validate requires both fields.
func (p Platform) Validate() error {
	if strings.TrimSpace(p.OS) == "" || strings.TrimSpace(p.Arch) == "" {
		return fmt.Errorf("%w: os=%q arch=%q", ErrInvalidPlatform, p.OS, p.Arch)
	}
	return nil
}

// Parse reads an "os/arch" pair.
func Parse(raw string) (Platform, error) {
	osName, arch, ok := strings.Cut(strings.TrimSpace(raw), "/")
	p := Platform{OS: osName, Arch: arch}
	if !ok {
		return Platform{}, fmt.Errorf("%w: %q is not os/arch", ErrInvalidPlatform, raw)
	}
	if err := p.Validate(); err != nil {
		return Platform{}, err
	}
	return p, nil
}

// Overrides are explicit platform selections. Empty fields fall through to
// host inspection.
type Overrides struct {
	OS   string
	Arch string
}

// Host reports the raw kernel name and machine architecture.
type Host interface {
	KernelName() (string, error)
	Machine() (string, error)
}

// canonicalArch maps uname machine strings to Go architecture names.
var canonicalArch = map[string]string{
	"amd64":  "amd64",
	"x86_64": "amd64",
	"i386":   "386",
	"i686":   "386",
	"arm":    "arm",
}

// Guesser resolves the target platform.
type Guesser struct {
	overrides Overrides
	host      Host
}

// NewGuesser builds a guesser. A nil host inspects the local machine.
func NewGuesser(overrides Overrides, host Host) *Guesser {
	if host == nil {
		host = UnameHost{}
	}
	return &Guesser{overrides: overrides, host: host}
}

// ResolveOS returns the OS override verbatim, else the lower-cased host
// kernel name.
func (g *Guesser) ResolveOS() (string, error) {
	if g.overrides.OS != "" {
		return g.overrides.OS, nil
	}
	name, err := g.host.KernelName()
	if err != nil {
		return "", fmt.Errorf("%w: inspect host os: %v", failure.ErrConfiguration, err)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: host os is empty", ErrInvalidPlatform)
	}
	return name, nil
}

// ResolveArch returns the arch override verbatim, else the canonical name of
// the host machine architecture. Unknown machines are fatal.
func (g *Guesser) ResolveArch() (string, error) {
	if g.overrides.Arch != "" {
		return g.overrides.Arch, nil
	}
	machine, err := g.host.Machine()
	if err != nil {
		return "", fmt.Errorf("%w: inspect host arch: %v", failure.ErrConfiguration, err)
	}
	return CanonicalArch(machine)
}

// Resolve returns both halves of the platform.
func (g *Guesser) Resolve() (Platform, error) {
	osName, err := g.ResolveOS()
	if err != nil {
		return Platform{}, err
	}
	arch, err := g.ResolveArch()
	if err != nil {
		return Platform{}, err
	}
	return Platform{OS: osName, Arch: arch}, nil
}

// CanonicalArch maps a host machine string through the fixed table.
func CanonicalArch(machine string) (string, error) {
	machine = strings.TrimSpace(machine)
	arch, ok := canonicalArch[machine]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, machine)
	}
	return arch, nil
}
