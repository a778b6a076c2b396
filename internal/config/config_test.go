package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCombinesEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.MaxBookDepthSnapshot = 0
	cfg.SinkFailurePolicy = "bogus"
	cfg.Database.DSN = ""
	cfg.Redis.Addr = ""
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "max_book_depth_snapshot")
	assert.Contains(t, msg, "sink_failure_policy")
	assert.Contains(t, msg, "dsn must not be empty")
	assert.Contains(t, msg, "redis: addr")
	assert.Contains(t, msg, "port must be 1-65535")
}

func TestValidateRejectsUnimplementedRollbackPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.SinkFailurePolicy = "rollback"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink_failure_policy")
}

func TestValidateRejectsBadTickOrLotSize(t *testing.T) {
	cfg := Defaults()
	cfg.Symbols = map[string]SymbolConfig{
		"BTC-USD": {TickSize: "not-a-number", LotSize: "1"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_size")
}

func TestEngineConfigParsesDecimalFields(t *testing.T) {
	cfg := Defaults()
	cfg.Symbols = map[string]SymbolConfig{
		"BTC-USD": {TickSize: "0.01", LotSize: "0.001"},
	}

	eng, err := cfg.EngineConfig()
	require.NoError(t, err)
	sym, ok := eng.Symbols["BTC-USD"]
	require.True(t, ok)
	assert.Equal(t, "0.01", sym.TickSize.String())
	assert.Equal(t, "0.001", sym.LotSize.String())
}
