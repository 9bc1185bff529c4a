package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/ockamctl/internal/cli"
	"github.com/danmuck/ockamctl/internal/failure"
	"github.com/danmuck/ockamctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := (&cli.App{}).Execute(ctx, os.Args[1:])
	stop()
	if err == nil {
		return
	}
	// Tool failures already showed their own output.
	if !errors.Is(err, failure.ErrToolExecution) {
		log.Error().Msgf("ockamctl: %v", err)
	} else {
		log.Debug().Msgf("ockamctl: %v", err)
	}
	os.Exit(failure.ExitCode(err))
}
