package core

import (
	"fmt"

	"github.com/sarchlab/pipesim/report"
	"github.com/sarchlab/pipesim/timing/cache"
	"github.com/sarchlab/pipesim/timing/latency"
)

// Config selects the engine variant and its parameters. It is fixed
// once a Core is created.
type Config struct {
	// Geometry is the shape of the data cache.
	Geometry cache.Geometry

	// Pipelined selects the 5-stage pipeline; otherwise every instruction
	// completes before the next one starts.
	Pipelined bool

	// Forwarding enables the bypass network. Pipelined only.
	Forwarding bool

	// PrintRegisters appends the register file to the report. Pipelined
	// only.
	PrintRegisters bool

	// TraceCycles records a per-cycle trace (per instruction for the
	// non-pipelined engine) and appends it to the report.
	TraceCycles bool

	// Timing holds the instruction latencies and the miss penalty. Nil
	// means latency.DefaultTimingConfig().
	Timing *latency.TimingConfig

	// Locale selects the number format of the text report. Empty means
	// report.DefaultLocale; report.AutoLocale asks the environment.
	Locale string
}

// validate checks the configuration and fills in defaults.
func (cfg *Config) validate() error {
	if err := cfg.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if cfg.Timing == nil {
		cfg.Timing = latency.DefaultTimingConfig()
	} else {
		cfg.Timing = cfg.Timing.Clone()
	}
	if err := cfg.Timing.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if _, err := report.ParseLocale(cfg.Locale); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return nil
}

// Mode names the engine variant.
func (cfg Config) Mode() string {
	if cfg.Pipelined {
		return "pipelined"
	}
	return "non-pipelined"
}

// ForwardingLabel describes the forwarding setting as the report shows it.
func (cfg Config) ForwardingLabel() string {
	switch {
	case !cfg.Pipelined:
		return "n/a"
	case cfg.Forwarding:
		return "enabled"
	default:
		return "disabled"
	}
}
