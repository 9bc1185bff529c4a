package platform

import (
	"errors"
	"testing"

	"github.com/danmuck/ockamctl/internal/failure"
)

type fakeHost struct {
	kernel  string
	machine string
	err     error
	calls   int
}

func (h *fakeHost) KernelName() (string, error) {
	h.calls++
	return h.kernel, h.err
}

func (h *fakeHost) Machine() (string, error) {
	h.calls++
	return h.machine, h.err
}

func TestResolveArchTable(t *testing.T) {
	cases := map[string]string{
		"amd64":  "amd64",
		"x86_64": "amd64",
		"i386":   "386",
		"i686":   "386",
		"arm":    "arm",
	}
	for machine, want := range cases {
		g := NewGuesser(Overrides{}, &fakeHost{machine: machine})
		got, err := g.ResolveArch()
		if err != nil {
			t.Fatalf("machine=%s: %v", machine, err)
		}
		if got != want {
			t.Fatalf("machine=%s: expected %s, got %s", machine, want, got)
		}
	}
}

func TestResolveArchUnsupported(t *testing.T) {
	for _, machine := range []string{"aarch64", "arm64", "riscv64", "AMD64", ""} {
		g := NewGuesser(Overrides{}, &fakeHost{machine: machine})
		_, err := g.ResolveArch()
		if !errors.Is(err, ErrUnsupportedArchitecture) {
			t.Fatalf("machine=%q: expected ErrUnsupportedArchitecture, got %v", machine, err)
		}
		if !errors.Is(err, failure.ErrConfiguration) {
			t.Fatalf("machine=%q: expected configuration error, got %v", machine, err)
		}
	}
}

func TestOverridesWinWithoutHostInspection(t *testing.T) {
	host := &fakeHost{kernel: "Linux", machine: "sparc"}
	g := NewGuesser(Overrides{OS: "Windows", Arch: "arm64"}, host)
	p, err := g.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.OS != "Windows" || p.Arch != "arm64" {
		t.Fatalf("expected verbatim overrides, got %s", p)
	}
	if host.calls != 0 {
		t.Fatalf("expected no host inspection, got %d calls", host.calls)
	}
}

func TestResolveOSLowercasesHost(t *testing.T) {
	g := NewGuesser(Overrides{}, &fakeHost{kernel: "Darwin\n", machine: "x86_64"})
	p, err := g.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p != (Platform{OS: "darwin", Arch: "amd64"}) {
		t.Fatalf("unexpected platform %s", p)
	}
}

func TestResolveHostError(t *testing.T) {
	g := NewGuesser(Overrides{}, &fakeHost{err: errors.New("uname failed")})
	if _, err := g.ResolveOS(); !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("linux/arm64")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.String() != "linux/arm64" {
		t.Fatalf("unexpected platform %s", p)
	}
	for _, raw := range []string{"linux", "/amd64", "linux/", ""} {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalidPlatform) {
			t.Fatalf("Parse(%q): expected ErrInvalidPlatform, got %v", raw, err)
		}
	}
}
