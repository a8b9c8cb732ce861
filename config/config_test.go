package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingBot/internal/adapters/logger"
	"listingBot/internal/ports"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.Equal(t, 3, cfg.MaxOpenPositions)
	assert.Equal(t, 20.0, cfg.BuyAmount)
	assert.Equal(t, 0.20, cfg.TakeProfit)
	assert.Equal(t, 0.15, cfg.StopLoss)
	assert.Equal(t, 0.001, cfg.FeeRate)
	assert.Equal(t, time.Hour, cfg.Cooldown)
	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.True(t, cfg.IsTestnet)
	assert.True(t, cfg.UnwindOnBracketFailure)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, logger.FormatJSON, cfg.LogFormat)
	assert.True(t, cfg.SimStart.IsZero())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("QUOTE_ASSET", "fdusd")
	t.Setenv("MAX_OPEN_POSITIONS", "5")
	t.Setenv("COOLDOWN_MINUTES", "90")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SIM_START", "2024-01-01")
	t.Setenv("SIM_END", "2024-02-01T00:00:00Z")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "FDUSD", cfg.QuoteAsset)
	assert.Equal(t, 5, cfg.MaxOpenPositions)
	assert.Equal(t, 90*time.Minute, cfg.Cooldown)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, logger.FormatConsole, cfg.LogFormat)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.SimStart)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), cfg.SimEnd)

	params := cfg.SimulationParams()
	assert.Equal(t, 5, params.MaxOpenPositions)
	assert.Equal(t, 90*time.Minute, params.Cooldown)
	assert.Equal(t, 1000.0, params.InitialBalance)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"non numeric capacity", "MAX_OPEN_POSITIONS", "many", "invalid MAX_OPEN_POSITIONS"},
		{"zero capacity", "MAX_OPEN_POSITIONS", "0", "MAX_OPEN_POSITIONS must be positive"},
		{"negative buy amount", "BUY_AMOUNT", "-1", "BUY_AMOUNT must be positive"},
		{"stop loss above one", "STOP_LOSS", "1.5", "STOP_LOSS must be between"},
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT must be json or console"},
		{"bad log level", "LOG_LEVEL", "verbose", "invalid LOG_LEVEL"},
		{"bad sim date", "SIM_START", "yesterday", "invalid SIM_START"},
		{"zero scan interval", "SCAN_INTERVAL_SECONDS", "0", "SCAN_INTERVAL_SECONDS must be positive"},
		{"non numeric cooldown", "COOLDOWN_MINUTES", "abc", "invalid COOLDOWN_MINUTES"},
		{"non numeric poll interval", "POLL_INTERVAL_SECONDS", "ten", "invalid POLL_INTERVAL_SECONDS"},
		{"non numeric request timeout", "REQUEST_TIMEOUT_SECONDS", "1m", "invalid REQUEST_TIMEOUT_SECONDS"},
		{"non boolean unwind flag", "UNWIND_ON_BRACKET_FAILURE", "maybe", "invalid UNWIND_ON_BRACKET_FAILURE"},
		{"non boolean testnet flag", "IS_TESTNET", "nope", "invalid IS_TESTNET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(path, []byte("MAX_OPEN_POSITIONS=7\nUNWIND_ON_BRACKET_FAILURE=false\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MAX_OPEN_POSITIONS")
		os.Unsetenv("UNWIND_ON_BRACKET_FAILURE")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxOpenPositions)
	assert.False(t, cfg.UnwindOnBracketFailure)
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func TestValidateLive(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	err = cfg.ValidateLive()
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")

	cfg.APIKey, cfg.SecretKey = "key", "secret"
	assert.NoError(t, cfg.ValidateLive())
}

func TestValidateDateRange(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"valid", now.Add(-10 * day), now.Add(-day), false},
		{"end equals now", now.Add(-day), now, false},
		{"missing start", time.Time{}, now, true},
		{"inverted", now.Add(-day), now.Add(-10 * day), true},
		{"empty window", now.Add(-day), now.Add(-day), true},
		{"future end", now.Add(-day), now.Add(day), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDateRange(tt.start, tt.end, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrConfigurationError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseEndDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"bare date covers the whole day", "2024-01-31", time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)},
		{"today stops at now", "2024-06-01", now},
		{"rfc3339 is exact", "2024-01-31T00:00:00Z", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndDate(tt.value, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEndDate("last week", now)
	assert.Error(t, err)
}
