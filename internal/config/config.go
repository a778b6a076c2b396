// Package config loads matchd's configuration from a TOML file, the way
// alanyoungcy-polymarketbot's internal/config package loads its own, and
// validates it with one combined error rather than failing on the first
// problem found.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// SymbolConfig is the TOML-facing form of a symbol's tick/lot quantum.
type SymbolConfig struct {
	TickSize string `toml:"tick_size"`
	LotSize  string `toml:"lot_size"`
}

// DatabaseConfig holds the durability sink's Postgres connection parameters.
type DatabaseConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
}

// RedisConfig holds the pub/sub publisher's Redis connection parameters.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServerConfig holds HTTP listener parameters for the upstream command surface.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Config is the root configuration structure (spec §6 recognized options
// plus the ambient sections §10 adds). Fields are populated from a TOML
// file on top of Defaults(); no field is read from environment variables.
type Config struct {
	Symbols              map[string]SymbolConfig `toml:"symbols"`
	MaxBookDepthSnapshot int                     `toml:"max_book_depth_snapshot"`
	AcceptMarketOrders   bool                    `toml:"accept_market_orders"`
	SinkFailurePolicy    string                  `toml:"sink_failure_policy"`

	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Symbols:              map[string]SymbolConfig{},
		MaxBookDepthSnapshot: 50,
		AcceptMarketOrders:   true,
		SinkFailurePolicy:    "halt-symbol",
		Database: DatabaseConfig{
			DSN:          "postgres://localhost:5432/matchd?sslmode=disable",
			PoolMaxConns: 10,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a TOML file at path on top of Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// rollback is accepted nowhere below: the engine only ever implements
// halt-symbol (see MatchingEngine.haltSymbol), so configuring rollback
// would silently degrade to halt-symbol rather than do what it says.
var validSinkFailurePolicies = map[string]bool{
	"halt-symbol": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.MaxBookDepthSnapshot <= 0 {
		errs = append(errs, "max_book_depth_snapshot must be > 0")
	}
	if !validSinkFailurePolicies[c.SinkFailurePolicy] {
		errs = append(errs, fmt.Sprintf("unknown sink_failure_policy %q (valid: halt-symbol; rollback is not implemented)", c.SinkFailurePolicy))
	}
	for symbol, sc := range c.Symbols {
		if _, err := decimal.NewFromString(sc.TickSize); err != nil {
			errs = append(errs, fmt.Sprintf("symbols.%s: invalid tick_size %q: %v", symbol, sc.TickSize, err))
		}
		if _, err := decimal.NewFromString(sc.LotSize); err != nil {
			errs = append(errs, fmt.Sprintf("symbols.%s: invalid lot_size %q: %v", symbol, sc.LotSize, err))
		}
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database: dsn must not be empty")
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EngineConfig translates the TOML-facing Config into the engine.Config the
// registry requires, parsing every tick/lot size into an exact decimal.
func (c Config) EngineConfig() (engine.Config, error) {
	symbols := make(map[string]engine.SymbolConfig, len(c.Symbols))
	for symbol, sc := range c.Symbols {
		tick, err := decimal.NewFromString(sc.TickSize)
		if err != nil {
			return engine.Config{}, fmt.Errorf("symbols.%s: %w", symbol, err)
		}
		lot, err := decimal.NewFromString(sc.LotSize)
		if err != nil {
			return engine.Config{}, fmt.Errorf("symbols.%s: %w", symbol, err)
		}
		symbols[symbol] = engine.SymbolConfig{TickSize: tick, LotSize: lot}
	}
	return engine.Config{
		Symbols:              symbols,
		MaxBookDepthSnapshot: c.MaxBookDepthSnapshot,
		AcceptMarketOrders:   c.AcceptMarketOrders,
	}, nil
}
