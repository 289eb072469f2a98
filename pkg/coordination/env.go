package coordination

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// envPrefix is the prefix of the environment variables set by the launcher,
// e.g. IO500_RANK.
const envPrefix = "IO500"

// Environment is the identity of a process within the collective, as set by
// whatever launched it.
type Environment struct {
	Rank       int           `envconfig:"RANK" default:"0"`
	Size       int           `envconfig:"SIZE" default:"1"`
	LeaderAddr string        `envconfig:"LEADER_ADDR" default:"127.0.0.1:5500"`
	ListenAddr string        `envconfig:"LISTEN_ADDR"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"2m"`
}

// LoadEnvironment reads the coordination environment.
func LoadEnvironment() (*Environment, error) {
	env := &Environment{}
	if err := envconfig.Process(envPrefix, env); err != nil {
		return nil, errors.Wrap(err, "failed to process coordination environment")
	}
	if env.Size < 1 {
		return nil, errors.Errorf("%s_SIZE must be at least 1, got %d", envPrefix, env.Size)
	}
	if env.Rank < 0 || env.Rank >= env.Size {
		return nil, errors.Errorf("%s_RANK %d is out of range [0, %d)", envPrefix, env.Rank, env.Size)
	}
	return env, nil
}

// FromEnv returns the provider described by the environment: a local
// provider for a collective of one, the HTTP provider otherwise.
func FromEnv(ctx context.Context) (Provider, error) {
	env, err := LoadEnvironment()
	if err != nil {
		return nil, err
	}
	if env.Size == 1 {
		return NewLocal(), nil
	}
	return NewHTTP(ctx, HTTPOptions{
		Rank:       env.Rank,
		Size:       env.Size,
		LeaderAddr: env.LeaderAddr,
		ListenAddr: env.ListenAddr,
		Timeout:    env.Timeout,
	})
}
