// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Static configuration for loops, connections and the server, loadable from TOML.

package control

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-conn/api"
)

// Duration is a time.Duration that decodes from strings such as "10s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config collects every tunable of the library.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	// Loops is the number of I/O loops; 0 runs connections on the accept loop.
	Loops int `toml:"loops"`
	// PollTimeout bounds one readiness wait when no timer is due sooner.
	PollTimeout Duration `toml:"poll_timeout"`
	// LoopCPUs pins I/O loop threads round-robin; empty leaves them unpinned.
	LoopCPUs []int `toml:"loop_cpus"`

	HighWaterMark     int  `toml:"high_water_mark"`
	InitialBufferSize int  `toml:"initial_buffer_size"`
	ReadScratchSize   int  `toml:"read_scratch_size"`
	TCPNoDelay        bool `toml:"tcp_no_delay"`

	ExecutorWorkers  int `toml:"executor_workers"`
	ExecutorQueueCap int `toml:"executor_queue_cap"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string `toml:"metrics_addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:9002",
		Loops:             0,
		PollTimeout:       Duration(10 * time.Second),
		HighWaterMark:     64 << 20,
		InitialBufferSize: 1024,
		ReadScratchSize:   64 << 10,
		TCPNoDelay:        true,
		ExecutorWorkers:   4,
		ExecutorQueueCap:  1024,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadConfig reads path over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Wrapf(api.ErrInvalidConfig, "unknown keys in %s: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Loops < 0:
		return errors.Wrapf(api.ErrInvalidConfig, "loops must be >= 0, got %d", c.Loops)
	case c.PollTimeout <= 0:
		return errors.Wrap(api.ErrInvalidConfig, "poll_timeout must be positive")
	case c.HighWaterMark <= 0:
		return errors.Wrapf(api.ErrInvalidConfig, "high_water_mark must be positive, got %d", c.HighWaterMark)
	case c.InitialBufferSize <= 0:
		return errors.Wrapf(api.ErrInvalidConfig, "initial_buffer_size must be positive, got %d", c.InitialBufferSize)
	case c.ReadScratchSize <= 0:
		return errors.Wrapf(api.ErrInvalidConfig, "read_scratch_size must be positive, got %d", c.ReadScratchSize)
	case c.ExecutorQueueCap <= 0:
		return errors.Wrapf(api.ErrInvalidConfig, "executor_queue_cap must be positive, got %d", c.ExecutorQueueCap)
	}
	for _, cpu := range c.LoopCPUs {
		if cpu < 0 {
			return errors.Wrapf(api.ErrInvalidConfig, "loop_cpus holds negative cpu %d", cpu)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Wrapf(api.ErrInvalidConfig, "log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
