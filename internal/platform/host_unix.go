//go:build unix

package platform

import (
	"golang.org/x/sys/unix"
)

// UnameHost reads uname(2).
type UnameHost struct{}

func (UnameHost) KernelName() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(u.Sysname[:]), nil
}

func (UnameHost) Machine() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(u.Machine[:]), nil
}
