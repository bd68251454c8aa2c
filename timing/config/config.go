// Package config provides the microarchitecture configuration of the
// out-of-order core.
//
// A Config is an immutable value once handed to the pipeline: structure
// sizes, unit counts, latencies and the feature toggles that select between
// predictor and memory-ordering variants. Configurations can be loaded from
// and saved to JSON files; fields missing from a file keep their defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/slices"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Features holds the behavioural toggles of the core.
type Features struct {
	// TwoLevel indexes the BHT with the PC concatenated with global history.
	TwoLevel bool `json:"two_level"`

	// GShare indexes the BHT with the PC XOR global history. It takes
	// precedence over TwoLevel.
	GShare bool `json:"gshare"`

	// OneBitBHT makes BHT counters jump straight to strongly taken or
	// strongly not taken.
	OneBitBHT bool `json:"one_bit_bht"`

	// StaticPrediction stops commit from training the BHT and BTAC on
	// conditional branches.
	StaticPrediction bool `json:"static_prediction"`

	// NoSpec disables speculation: every branch stalls fetch until the
	// branch unit resolves it.
	NoSpec bool `json:"no_spec"`

	// ClearHistoryOnCall resets global history when a call is decoded.
	ClearHistoryOnCall bool `json:"clear_history_on_call"`

	// StoreForward lets loads take their value from an earlier store in the
	// reorder buffer.
	StoreForward bool `json:"store_forward"`

	// StoreCheck makes loads wait behind stores whose address is not yet
	// known. Disabling it is unsafe: loads speculate past those stores with
	// no later ordering check, so a load that aliases one reads stale
	// memory and the run can diverge from the emulator.
	StoreCheck bool `json:"store_check"`

	// Permissive downgrades out-of-bounds stores at commit to warnings.
	Permissive bool `json:"permissive"`

	// BenchOnly stops the simulation at the end of a benchmark region
	// instead of pausing.
	BenchOnly bool `json:"bench_only"`
}

// DCacheConfig configures the optional data cache latency model.
type DCacheConfig struct {
	Enabled       bool   `json:"enabled"`
	Size          int    `json:"size"`
	Associativity int    `json:"associativity"`
	BlockSize     int    `json:"block_size"`
	HitLatency    uint64 `json:"hit_latency"`
	MissLatency   uint64 `json:"miss_latency"`
}

// Config holds the parameters of the out-of-order core.
type Config struct {
	// IssueWidth is the number of instructions fetched and decoded per
	// cycle. It is also the number of common data bus slots.
	IssueWidth int `json:"issue_width"`

	// RetireWidth is the maximum number of ROB entries committed per cycle.
	RetireWidth int `json:"retire_width"`

	ALUCount int `json:"alu_count"`
	LSUCount int `json:"lsu_count"`
	BRUCount int `json:"bru_count"`

	// RSCount is the number of reservation stations shared by ALU, branch,
	// store and debug operations.
	RSCount int `json:"rs_count"`

	// LDBSize is the number of load buffer entries. Power of two.
	LDBSize int `json:"ldb_size"`

	// ROBSize is the number of reorder buffer slots. Power of two; one slot
	// always stays empty.
	ROBSize int `json:"rob_size"`

	BHTSize           int `json:"bht_size"`
	GlobalHistoryBits int `json:"global_history_bits"`
	BTACSize          int `json:"btac_size"`
	RASSize           int `json:"ras_size"`

	// MemorySize is the size of the simulated address space in bytes.
	MemorySize uint32 `json:"memory_size"`

	// LoadLatency is the minimum number of cycles between a load entering
	// an LSU and its memory access.
	LoadLatency uint64 `json:"load_latency"`

	// LoadJitter adds a pseudo-random 0..LoadJitter cycles to each load.
	LoadJitter uint64 `json:"load_jitter"`

	// Seed seeds the load jitter generator.
	Seed uint64 `json:"seed"`

	DCache DCacheConfig `json:"dcache"`

	Features Features `json:"features"`
}

// DefaultConfig returns the reference 4-wide configuration.
func DefaultConfig() *Config {
	return &Config{
		IssueWidth:        4,
		RetireWidth:       4,
		ALUCount:          4,
		LSUCount:          2,
		BRUCount:          1,
		RSCount:           24,
		LDBSize:           8,
		ROBSize:           32,
		BHTSize:           128,
		GlobalHistoryBits: 3,
		BTACSize:          32,
		RASSize:           4,
		MemorySize:        64 << 20,
		LoadLatency:       2,
		LoadJitter:        3,
		Seed:              1,
		DCache: DCacheConfig{
			Size:          32 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		},
		Features: Features{
			TwoLevel:     true,
			StoreForward: true,
			StoreCheck:   true,
		},
	}
}

// LoadConfig loads a configuration from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := c.JSON()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// JSON returns the indented JSON form of the configuration.
func (c *Config) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration describes a buildable core.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"issue_width", c.IssueWidth},
		{"retire_width", c.RetireWidth},
		{"alu_count", c.ALUCount},
		{"lsu_count", c.LSUCount},
		{"bru_count", c.BRUCount},
		{"rs_count", c.RSCount},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0", ErrInvalidConfig, p.name)
		}
	}

	powers := []struct {
		name  string
		value int
	}{
		{"ldb_size", c.LDBSize},
		{"rob_size", c.ROBSize},
		{"bht_size", c.BHTSize},
		{"btac_size", c.BTACSize},
		{"ras_size", c.RASSize},
	}
	for _, p := range powers {
		if p.value <= 0 || p.value&(p.value-1) != 0 {
			return fmt.Errorf("%w: %s must be a power of two", ErrInvalidConfig, p.name)
		}
	}

	if c.ROBSize < 4 {
		return fmt.Errorf("%w: rob_size must be at least 4", ErrInvalidConfig)
	}
	if c.GlobalHistoryBits < 0 || c.GlobalHistoryBits > 16 {
		return fmt.Errorf("%w: global_history_bits must be in [0, 16]", ErrInvalidConfig)
	}
	if c.MemorySize < 64*1024 {
		return fmt.Errorf("%w: memory_size must be at least 64 KiB", ErrInvalidConfig)
	}

	if c.DCache.Enabled {
		d := c.DCache
		if d.Associativity <= 0 || d.BlockSize <= 0 || d.BlockSize&(d.BlockSize-1) != 0 {
			return fmt.Errorf("%w: dcache needs positive associativity and a power-of-two block size",
				ErrInvalidConfig)
		}
		if d.Size < d.Associativity*d.BlockSize || d.Size%(d.Associativity*d.BlockSize) != 0 {
			return fmt.Errorf("%w: dcache size must be a multiple of associativity * block_size",
				ErrInvalidConfig)
		}
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// StackPointer returns the initial stack pointer.
func (c *Config) StackPointer() uint32 {
	return c.MemorySize - 8
}

// ThreadPointer returns the initial thread pointer.
func (c *Config) ThreadPointer() uint32 {
	return c.MemorySize / 8 * 3
}

// Presets returns named variants of the default configuration.
func Presets() map[string]*Config {
	presets := map[string]*Config{
		"default": DefaultConfig(),
	}

	static := DefaultConfig()
	static.Features.StaticPrediction = true
	presets["static"] = static

	noSpec := DefaultConfig()
	noSpec.Features.NoSpec = true
	presets["nospec"] = noSpec

	gshare := DefaultConfig()
	gshare.Features.GShare = true
	presets["gshare"] = gshare

	oneBit := DefaultConfig()
	oneBit.Features.TwoLevel = false
	oneBit.Features.OneBitBHT = true
	presets["1bit"] = oneBit

	noForward := DefaultConfig()
	noForward.Features.StoreForward = false
	presets["noforward"] = noForward

	narrow := DefaultConfig()
	narrow.IssueWidth = 1
	narrow.RetireWidth = 1
	narrow.ALUCount = 1
	narrow.LSUCount = 1
	narrow.RSCount = 4
	narrow.LDBSize = 2
	narrow.ROBSize = 8
	presets["narrow"] = narrow

	cached := DefaultConfig()
	cached.DCache.Enabled = true
	presets["dcache"] = cached

	return presets
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
