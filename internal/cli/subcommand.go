package cli

// Subcommand enumerates everything ockamctl can be asked to do. Every value
// has exactly one handler in handlers.
type Subcommand int

const (
	SubBinary Subcommand = iota
	SubClean
	SubHelp
	SubInstall
	SubLint
	SubRelease
	SubRun
	SubTest
	SubUninstall
	numSubcommands
)

var subcommandNames = [numSubcommands]string{
	SubBinary:    "binary",
	SubClean:     "clean",
	SubHelp:      "help",
	SubInstall:   "install",
	SubLint:      "lint",
	SubRelease:   "release",
	SubRun:       "run",
	SubTest:      "test",
	SubUninstall: "uninstall",
}

func (s Subcommand) String() string {
	if s < 0 || s >= numSubcommands {
		return "unknown"
	}
	return subcommandNames[s]
}

// Subcommands lists every subcommand in declaration order.
func Subcommands() []Subcommand {
	out := make([]Subcommand, 0, numSubcommands)
	for s := Subcommand(0); s < numSubcommands; s++ {
		out = append(out, s)
	}
	return out
}

// ParseSubcommand maps a command-line word to its subcommand.
func ParseSubcommand(name string) (Subcommand, bool) {
	for s, n := range subcommandNames {
		if n == name {
			return Subcommand(s), true
		}
	}
	return 0, false
}
