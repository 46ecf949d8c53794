// Package config loads arbiter scenarios and builds the simulated platform.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/util/valgen"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one simulation: the arbiter, the memory behind it, and what
// each port does.
type Config struct {
	Arbiter ArbiterConfig `yaml:"arbiter"`
	Memory  MemoryConfig  `yaml:"memory"`
	Ports   []PortConfig  `yaml:"ports"`
	Trace   TraceConfig   `yaml:"trace"`
}

// ArbiterConfig holds the structural parameters of the arbiter.
type ArbiterConfig struct {
	FreqGHz       float64 `yaml:"freq_ghz"`
	NumPorts      int     `yaml:"num_ports"`
	BurstSize     int     `yaml:"burst_size"`
	FIFODepthLog2 int     `yaml:"fifo_depth_log2"`
	CplDepthLog2  int     `yaml:"cpl_depth_log2"`
	SeqDepth      int     `yaml:"seq_depth"`
	ReadLatency   int     `yaml:"read_latency"`
	WordBytes     int     `yaml:"word_bytes"`
	Mode          string  `yaml:"mode"`
	Policy        string  `yaml:"policy"`
	CplPolicy     string  `yaml:"cpl_policy"`
}

// MemoryConfig describes the memory bus.
type MemoryConfig struct {
	Latency        int    `yaml:"latency"`
	Capacity       uint64 `yaml:"capacity"`
	MaxOutstanding int    `yaml:"max_outstanding"`
	StallPattern   string `yaml:"stall_pattern"`
	DropIDs        bool   `yaml:"drop_ids"`

	// FillWithAddress preloads every word a read port asks for with its own
	// address.
	FillWithAddress bool `yaml:"fill_with_address"`
}

// PortConfig describes the stimulus of one port.
type PortConfig struct {
	Requests      int    `yaml:"requests"`
	Frames        int    `yaml:"frames"`
	EnablePattern string `yaml:"enable_pattern"`
	AckPattern    string `yaml:"ack_pattern"`
	GreedyAck     bool   `yaml:"greedy_ack"`
	NoCollect     bool   `yaml:"no_collect"`

	AddrFirst uint64 `yaml:"addr_first"`
	AddrLast  uint64 `yaml:"addr_last"`
	Repeat    bool   `yaml:"repeat"`
	DataStart uint64 `yaml:"data_start"`
}

// TraceConfig selects what is recorded during a run.
type TraceConfig struct {
	SQLite string `yaml:"sqlite"`
	Verify bool   `yaml:"verify"`
}

// Default returns the two-port scenario: port 0 sends 18 requests back to
// back, port 1 sends 10 requests on a 1100 pattern.
func Default() Config {
	return Config{
		Arbiter: ArbiterConfig{
			FreqGHz:       1,
			NumPorts:      2,
			BurstSize:     8,
			FIFODepthLog2: 4,
			CplDepthLog2:  5,
			ReadLatency:   2,
			WordBytes:     8,
			Mode:          ram.ModeRead.String(),
			Policy:        core.PolicyFixed,
		},
		Memory: MemoryConfig{
			Latency:         10,
			Capacity:        1 << 20,
			MaxOutstanding:  64,
			FillWithAddress: true,
		},
		Ports: []PortConfig{
			{Requests: 18, Frames: 1, EnablePattern: "1", AckPattern: "1"},
			{
				Requests:      10,
				Frames:        1,
				EnablePattern: "1100",
				AckPattern:    "1",
				AddrFirst:     0x1000,
			},
		},
		Trace: TraceConfig{Verify: true},
	}
}

// Load reads a YAML config file. Fields that the file leaves out keep the
// values of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML config.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Ports = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Ports == nil {
		cfg.Ports = Default().Ports
	}

	for i := range cfg.Ports {
		if cfg.Ports[i].Frames == 0 {
			cfg.Ports[i].Frames = 1
		}
	}

	return cfg, nil
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Mode returns the parsed arbiter mode.
func (c Config) Mode() (ram.Mode, error) {
	return ram.ParseMode(c.Arbiter.Mode)
}

// Params converts the config into arbiter parameters.
func (c Config) Params() (core.Params, error) {
	mode, err := c.Mode()
	if err != nil {
		return core.Params{}, err
	}

	p := core.Params{
		NumPorts:      c.Arbiter.NumPorts,
		BurstSize:     c.Arbiter.BurstSize,
		FIFODepthLog2: c.Arbiter.FIFODepthLog2,
		CplDepthLog2:  c.Arbiter.CplDepthLog2,
		SeqDepth:      c.Arbiter.SeqDepth,
		ReadLatency:   c.Arbiter.ReadLatency,
		WordBytes:     c.Arbiter.WordBytes,
		Mode:          mode,
	}

	if mode == ram.ModeWrite {
		p.AddrRanges = make([]core.AddrRange, len(c.Ports))
		for i, port := range c.Ports {
			p.AddrRanges[i] = core.AddrRange{
				First:  port.AddrFirst,
				Last:   port.AddrLast,
				Repeat: port.Repeat,
			}
		}
	}

	return p, nil
}

// Validate checks that a platform can be built from the config.
func (c Config) Validate() error {
	p, err := c.Params()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Arbiter.FreqGHz <= 0 {
		return fmt.Errorf("%w: frequency must be positive", ErrInvalidConfig)
	}

	for _, name := range []string{c.Arbiter.Policy, c.Arbiter.CplPolicy} {
		if _, err := core.NewPolicy(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if err := c.validateMemory(); err != nil {
		return err
	}

	if len(c.Ports) != c.Arbiter.NumPorts {
		return fmt.Errorf("%w: %d ports configured for %d arbiter ports",
			ErrInvalidConfig, len(c.Ports), c.Arbiter.NumPorts)
	}

	for i, port := range c.Ports {
		if err := port.validate(); err != nil {
			return fmt.Errorf("%w: port %d: %w", ErrInvalidConfig, i, err)
		}

		if end := c.lastAddr(p.Mode, port); end >= c.Memory.Capacity {
			return fmt.Errorf("%w: port %d reaches address %#x beyond capacity %#x",
				ErrInvalidConfig, i, end, c.Memory.Capacity)
		}
	}

	return nil
}

// lastAddr returns the highest address a port touches.
func (c Config) lastAddr(mode ram.Mode, port PortConfig) uint64 {
	if mode == ram.ModeWrite {
		return port.AddrLast
	}

	if port.Requests == 0 {
		return port.AddrFirst
	}

	return port.AddrFirst + uint64(port.Requests-1)*uint64(c.Arbiter.WordBytes)
}

func (c Config) validateMemory() error {
	m := c.Memory

	if m.Latency < 1 {
		return fmt.Errorf("%w: memory latency %d, must be at least 1",
			ErrInvalidConfig, m.Latency)
	}

	if m.MaxOutstanding < 1 {
		return fmt.Errorf("%w: memory max outstanding %d, must be at least 1",
			ErrInvalidConfig, m.MaxOutstanding)
	}

	if _, err := valgen.ParsePattern(m.StallPattern); err != nil {
		return fmt.Errorf("%w: memory stall pattern: %w", ErrInvalidConfig, err)
	}

	return nil
}

func (p PortConfig) validate() error {
	if p.Requests < 0 || p.Frames < 0 {
		return fmt.Errorf("negative request or frame count")
	}

	if _, err := valgen.ParsePattern(p.EnablePattern); err != nil {
		return fmt.Errorf("enable pattern: %w", err)
	}

	if _, err := valgen.ParsePattern(p.AckPattern); err != nil {
		return fmt.Errorf("ack pattern: %w", err)
	}

	return nil
}
