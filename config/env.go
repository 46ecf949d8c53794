package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the loaded config.
const (
	EnvNumPorts   = "RAMARB_NUM_PORTS"
	EnvBurstSize  = "RAMARB_BURST_SIZE"
	EnvPolicy     = "RAMARB_POLICY"
	EnvMode       = "RAMARB_MODE"
	EnvMemLatency = "RAMARB_MEM_LATENCY"
	EnvStall      = "RAMARB_MEM_STALL"
	EnvTraceDB    = "RAMARB_TRACE_DB"
)

// LoadEnvFile loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overrides the config with the RAMARB_* environment variables that
// are set.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvNumPorts, &c.Arbiter.NumPorts},
		{EnvBurstSize, &c.Arbiter.BurstSize},
		{EnvMemLatency, &c.Memory.Latency},
	}

	for _, e := range ints {
		v, ok := os.LookupEnv(e.key)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}

		*e.dst = n
	}

	if v, ok := os.LookupEnv(EnvPolicy); ok {
		c.Arbiter.Policy = v
		c.Arbiter.CplPolicy = v
	}

	if v, ok := os.LookupEnv(EnvMode); ok {
		c.Arbiter.Mode = v
	}

	if v, ok := os.LookupEnv(EnvStall); ok {
		c.Memory.StallPattern = v
	}

	if v, ok := os.LookupEnv(EnvTraceDB); ok {
		c.Trace.SQLite = v
	}

	return nil
}
