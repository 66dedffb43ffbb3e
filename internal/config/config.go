// Package config builds server configuration via functional options, in
// the style of the teacher's eventloop/options.go LoopOption pattern.
package config

import "github.com/joeycumines/kvreactor/internal/serverlog"

// Config is the resolved, immutable server configuration.
type Config struct {
	Port           int
	WorkerCount    int
	MaxInboxSize   int
	ReadBufferSize int
	Logger         serverlog.Logger
}

// Option mutates a Config during resolution.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithPort sets the listening TCP port.
func WithPort(port int) Option {
	return optionFunc(func(c *Config) { c.Port = port })
}

// WithWorkerCount sets the number of command-execution workers.
func WithWorkerCount(n int) Option {
	return optionFunc(func(c *Config) { c.WorkerCount = n })
}

// WithMaxInboxSize overrides the per-connection inbox cap.
func WithMaxInboxSize(n int) Option {
	return optionFunc(func(c *Config) { c.MaxInboxSize = n })
}

// WithReadBufferSize overrides the per-read scratch buffer size.
func WithReadBufferSize(n int) Option {
	return optionFunc(func(c *Config) { c.ReadBufferSize = n })
}

// WithLogger overrides the server's Logger.
func WithLogger(l serverlog.Logger) Option {
	return optionFunc(func(c *Config) { c.Logger = l })
}

// Defaults returns the baseline configuration: port 12345, 5 workers, a
// 2 MiB inbox cap, a 4 KiB read buffer, and a default Logger, per
// SPEC_FULL §3/§6.
func Defaults() Config {
	return Config{
		Port:           12345,
		WorkerCount:    5,
		MaxInboxSize:   2 << 20,
		ReadBufferSize: 4096,
		Logger:         serverlog.NewDefault(serverlog.LevelInfo),
	}
}

// New resolves a Config from Defaults() plus the given options.
func New(opts ...Option) Config {
	c := Defaults()
	for _, opt := range opts {
		opt.apply(&c)
	}
	return c
}
