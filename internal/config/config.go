// Package config loads run configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/talgya/collapse-sim/internal/engine"
	"github.com/talgya/collapse-sim/internal/topology"
)

// Config is the full run configuration.
type Config struct {
	Seed  int64 `yaml:"seed"` // 0 = random
	Steps int   `yaml:"steps"`

	Households        int     `yaml:"households"`
	Firms             int     `yaml:"firms"`
	InitialInflation  float64 `yaml:"initial_inflation"`
	InitialEmployment float64 `yaml:"initial_employment"`
	InitialUnrest     int     `yaml:"initial_unrest"`

	Topology Topology                `yaml:"topology"`
	Shocks   Shocks                  `yaml:"shocks"`
	Schedule []engine.ScheduledShock `yaml:"schedule"`

	Run Run `yaml:"run"`
	API API `yaml:"api"`
}

type Topology struct {
	ConnectProb   float64 `yaml:"connect_prob"`
	MatchProb     float64 `yaml:"match_prob"`
	NumRegions    int     `yaml:"num_regions"`
	RegionMode    string  `yaml:"region_mode"`
	MaxTradeLinks int     `yaml:"max_trade_links"`
	NumShockZones int     `yaml:"num_shock_zones"`
}

type Shocks struct {
	CooldownTicks int     `yaml:"cooldown_ticks"`
	Probability   float64 `yaml:"probability"`
}

// Run holds driver outputs and pacing.
type Run struct {
	DBPath      string `yaml:"db_path"`      // "" disables the run store
	HistoryPath string `yaml:"history_path"` // "" disables the history export
	IntervalMs  int    `yaml:"interval_ms"`  // Pause between ticks; 0 runs unthrottled
}

type API struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
}

// Default returns the reference scenario: 100 households, 10 firms, 1000 steps.
func Default() Config {
	p := engine.DefaultParams()
	return Config{
		Steps:             1000,
		Households:        p.Households,
		Firms:             p.Firms,
		InitialInflation:  p.InitialInflation,
		InitialEmployment: p.InitialEmployment,
		InitialUnrest:     p.InitialUnrest,
		Topology: Topology{
			ConnectProb:   p.Topology.ConnectProb,
			MatchProb:     p.Topology.MatchProb,
			NumRegions:    p.Topology.NumRegions,
			RegionMode:    string(p.Topology.RegionMode),
			MaxTradeLinks: p.Topology.MaxTradeLinks,
			NumShockZones: p.Topology.NumShockZones,
		},
		Shocks: Shocks{
			CooldownTicks: p.Shocks.CooldownTicks,
			Probability:   p.Shocks.Probability,
		},
		Run: Run{
			DBPath:      "data/collapse.db",
			HistoryPath: "data/history.jsonl.zst",
		},
		API: API{Port: 8080},
	}
}

// Load reads path over Default(), then applies environment overrides. An
// empty path skips the file. A .env file in the working directory is loaded
// when present.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COLLAPSE_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("COLLAPSE_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := os.Getenv("COLLAPSE_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COLLAPSE_STEPS: %w", err)
		}
		c.Steps = n
	}
	if v, ok := os.LookupEnv("COLLAPSE_DB_PATH"); ok {
		c.Run.DBPath = v
	}
	if v, ok := os.LookupEnv("COLLAPSE_HISTORY_PATH"); ok {
		c.Run.HistoryPath = v
	}
	if v := os.Getenv("COLLAPSE_API_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COLLAPSE_API_PORT: %w", err)
		}
		c.API.Port = n
	}
	if v := os.Getenv("COLLAPSE_ADMIN_KEY"); v != "" {
		c.API.AdminKey = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	prob := func(name string, p float64) {
		if p < 0 || p > 1 {
			bad("%s %v outside [0, 1]", name, p)
		}
	}

	if c.Households < 1 {
		bad("households must be at least 1, got %d", c.Households)
	}
	if c.Firms < 0 {
		bad("firms cannot be negative, got %d", c.Firms)
	}
	if c.Steps < 0 {
		bad("steps cannot be negative, got %d", c.Steps)
	}
	if c.InitialInflation < 0 {
		bad("initial_inflation cannot be negative, got %v", c.InitialInflation)
	}
	prob("initial_employment", c.InitialEmployment)
	if c.InitialUnrest < 0 {
		bad("initial_unrest cannot be negative, got %d", c.InitialUnrest)
	}

	prob("topology.connect_prob", c.Topology.ConnectProb)
	prob("topology.match_prob", c.Topology.MatchProb)
	if c.Topology.NumRegions < 1 {
		bad("topology.num_regions must be at least 1, got %d", c.Topology.NumRegions)
	}
	switch topology.RegionMode(c.Topology.RegionMode) {
	case topology.RegionUniform, topology.RegionNoise, "":
	default:
		bad("topology.region_mode %q is not uniform or noise", c.Topology.RegionMode)
	}
	if c.Topology.MaxTradeLinks < 0 {
		bad("topology.max_trade_links cannot be negative, got %d", c.Topology.MaxTradeLinks)
	}
	if c.Topology.NumShockZones < 0 {
		bad("topology.num_shock_zones cannot be negative, got %d", c.Topology.NumShockZones)
	}

	if c.Shocks.CooldownTicks < 0 {
		bad("shocks.cooldown_ticks cannot be negative, got %d", c.Shocks.CooldownTicks)
	}
	prob("shocks.probability", c.Shocks.Probability)
	for _, sc := range c.Schedule {
		if _, err := engine.ParseShockKind(sc.Name); err != nil {
			bad("schedule at tick %d: %w", sc.Tick, err)
		}
	}

	if c.Run.IntervalMs < 0 {
		bad("run.interval_ms cannot be negative, got %d", c.Run.IntervalMs)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		bad("api.port %d out of range", c.API.Port)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Params maps the configuration onto simulation parameters.
func (c Config) Params() engine.Params {
	p := engine.DefaultParams()
	p.Households = c.Households
	p.Firms = c.Firms
	p.InitialInflation = c.InitialInflation
	p.InitialEmployment = c.InitialEmployment
	p.InitialUnrest = c.InitialUnrest
	p.Seed = c.Seed

	p.Topology = topology.Config{
		ConnectProb:   c.Topology.ConnectProb,
		MatchProb:     c.Topology.MatchProb,
		NumRegions:    c.Topology.NumRegions,
		RegionMode:    topology.RegionMode(c.Topology.RegionMode),
		MaxTradeLinks: c.Topology.MaxTradeLinks,
		NumShockZones: c.Topology.NumShockZones,
	}
	if p.Topology.RegionMode == "" {
		p.Topology.RegionMode = topology.RegionUniform
	}
	p.Shocks = engine.ShockConfig{
		CooldownTicks: c.Shocks.CooldownTicks,
		Probability:   c.Shocks.Probability,
	}
	return p
}

// Interval returns the configured pause between ticks.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Run.IntervalMs) * time.Millisecond
}
