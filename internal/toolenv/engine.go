package toolenv

import (
	"context"
	"fmt"
	"strings"
)

const (
	EngineDocker = "docker"
	EngineDagger = "dagger"
)

// OpenEngine returns the engine named kind and a release func for it.
func OpenEngine(ctx context.Context, kind string, docker DockerConfig, dag DaggerConfig) (Engine, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", EngineDocker:
		return NewDockerEngine(docker), func() error { return nil }, nil
	case EngineDagger:
		e, err := ConnectDagger(ctx, dag)
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownEngine, kind)
	}
}
