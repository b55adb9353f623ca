package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different instruction classes.
type TimingConfig struct {
	// ALULatency is the execute latency for register and immediate ALU
	// operations (ADD, SUB, AND, OR, XOR, SLT, SLL, SRL, ADDI).
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the execute latency for MUL. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// BranchLatency is the execute latency for BEQ, BNE and J.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// AddressLatency is the execute latency of the effective address
	// computation for LOAD and STORE. Default: 1 cycle.
	AddressLatency uint64 `json:"address_latency"`

	// MissPenalty is the number of extra cycles a cache miss costs.
	// Default: 10 cycles.
	MissPenalty uint64 `json:"miss_penalty"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		MultiplyLatency: 3,
		BranchLatency:   1,
		AddressLatency:  1,
		MissPenalty:     10,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all execute latencies are > 0. A zero miss
// penalty is allowed and models a perfect memory.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.AddressLatency == 0 {
		return fmt.Errorf("address_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
