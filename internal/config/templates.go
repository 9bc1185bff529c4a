package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes the annotated default config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(projectTemplate), 0o644)
}

const projectTemplate = `# ockamctl project configuration
package = "ockam"
version_file = "main.go"
main_package = "."
build_dir = ".build"
vendor_dir = "vendor"
install_dir = "/usr/local/bin"
# metrics_file = ".build/ockamctl.prom"

[tools]
engine = "docker" # docker | dagger
namespace = "ockam/tool"
context_dir = "tools/docker"
# dockerfile = "tools/docker/Dockerfile"
mount_path = "/project"
docker = "docker"

[release]
platforms = [
  { os = "linux", arch = "amd64" },
  { os = "linux", arch = "arm64" },
  { os = "darwin", arch = "amd64" },
  { os = "windows", arch = "amd64" },
]

[[lint]]
name = "eclint"
args = ["check"]

[[lint]]
name = "golangci-lint"
args = ["run", "./..."]

[test]
args = ["test", "-v", "./..."]
`
