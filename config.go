package scriptbridge

import (
	"log/slog"
	"time"
)

// Config holds runtime configuration for a Host.
type Config struct {
	// EngineFactory builds one engine per execution request. Required.
	EngineFactory EngineFactory

	// CallTimeout bounds how long a worker waits on one host callback
	// rendezvous. Zero keeps the baseline behavior: the worker blocks
	// until the host loop publishes a result.
	CallTimeout time.Duration

	// OnUnhandled receives failures that have no return channel: a host
	// callback erroring or panicking during a rendezvous, or a completion
	// handler panicking. Nil means panic on the host loop goroutine.
	OnUnhandled func(error)

	// Logger receives execution lifecycle records. Nil means slog.Default().
	Logger *slog.Logger
}

func (cfg Config) withDefaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
