//go:build !unix

package platform

import (
	"runtime"
)

// UnameHost falls back to the Go runtime where uname(2) is unavailable.
type UnameHost struct{}

func (UnameHost) KernelName() (string, error) {
	return runtime.GOOS, nil
}

func (UnameHost) Machine() (string, error) {
	return runtime.GOARCH, nil
}
