package observability

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunLogger tags the global logger with a fresh run id and the subcommand,
// so interleaved logs from retried runs stay attributable.
func RunLogger(command string) (zerolog.Logger, string) {
	runID := uuid.NewString()
	logger := log.Logger.With().Str("run", runID).Str("cmd", command).Logger()
	return logger, runID
}
