package build

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/artifact"
	"github.com/danmuck/ockamctl/internal/config"
	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/platform"
	"github.com/danmuck/ockamctl/internal/version"
)

var (
	ErrInstallDirMissing   = fmt.Errorf("%w: install directory does not exist", failure.ErrPrecondition)
	ErrArtifactMissing     = fmt.Errorf("%w: artifact not built", failure.ErrPrecondition)
	ErrInstallDirNotFolder = fmt.Errorf("%w: install path is not a directory", failure.ErrPrecondition)
)

// Installer copies the host-platform artifact into the install directory.
type Installer struct {
	cfg     config.Config
	guesser *platform.Guesser
	root    string
}

// NewInstaller builds an installer. Empty root means the current directory.
func NewInstaller(cfg config.Config, guesser *platform.Guesser, root string) (*Installer, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}
	if guesser == nil {
		guesser = platform.NewGuesser(cfg.Env.Overrides, nil)
	}
	return &Installer{cfg: cfg, guesser: guesser, root: root}, nil
}

// Target is the installed binary path.
func (i *Installer) Target() (string, error) {
	osName, err := i.guesser.ResolveOS()
	if err != nil {
		return "", err
	}
	return filepath.Join(i.cfg.InstallDir, artifact.BinaryName(i.cfg.Package, osName)), nil
}

// Install copies the artifact built for the resolved platform to the install
// directory with mode 0755. It never builds.
func (i *Installer) Install() (string, error) {
	if err := i.checkInstallDir(); err != nil {
		return "", err
	}
	target, err := i.guesser.Resolve()
	if err != nil {
		return "", err
	}
	ver, err := version.FromFile(i.path(i.cfg.VersionFile))
	if err != nil {
		return "", err
	}
	src := i.path(artifact.Path(i.cfg.Package, ver, target.OS, target.Arch, i.cfg.BuildDir))
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s (run `ockamctl binary` first)", ErrArtifactMissing, src)
	}
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrArtifactMissing, src)
	}

	dst := filepath.Join(i.cfg.InstallDir, artifact.BinaryName(i.cfg.Package, target.OS))
	if err := copyFile(src, dst, 0o755); err != nil {
		return "", fmt.Errorf("install %s: %w", dst, err)
	}
	log.Info().Msgf("build.install src=%s dst=%s", src, dst)
	return dst, nil
}

// Uninstall removes the installed binary. An absent binary is not an error.
func (i *Installer) Uninstall() (string, error) {
	dst, err := i.Target()
	if err != nil {
		return "", err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("uninstall %s: %w", dst, err)
	}
	log.Info().Msgf("build.uninstall dst=%s", dst)
	return dst, nil
}

func (i *Installer) checkInstallDir() error {
	info, err := os.Stat(i.cfg.InstallDir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrInstallDirMissing, i.cfg.InstallDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInstallDirNotFolder, i.cfg.InstallDir)
	}
	return nil
}

func (i *Installer) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(i.root, p)
}

// copyFile writes src to dst through a temporary file in the destination
// directory so a running binary at dst is replaced, not truncated.
func copyFile(src string, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
