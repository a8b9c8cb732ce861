package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"listingBot/internal/adapters/logger"
	"listingBot/internal/domain"
	"listingBot/internal/ports"
	"listingBot/internal/risk"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	QuoteAsset             string
	MaxOpenPositions       int
	BuyAmount              float64 // Quote amount spent per entry
	TakeProfit             float64 // Fraction, e.g. 0.20 for 20%
	StopLoss               float64 // Fraction, e.g. 0.15 for 15%
	FeeRate                float64 // Per-side fee fraction
	MinLiquidity           float64 // Minimum 24h quote volume
	StopLimitSlippage      float64 // Stop-limit price sits this fraction below the trigger
	Cooldown               time.Duration
	UnwindOnBracketFailure bool

	// Scheduling
	ScanInterval   time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel  zerolog.Level
	LogFormat logger.Format

	// Metrics endpoint, empty disables it
	MetricsAddr string

	// Simulation window
	SimStart          time.Time
	SimEnd            time.Time
	SimInitialBalance float64
}

// LoadConfig loads configuration from environment variables.
// envFiles are loaded first when given, otherwise .env in the working directory.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("%w: failed to load env file: %w", ports.ErrConfigurationError, err)
		}
	} else {
		// Don't fail if .env doesn't exist (allow pure env vars)
		_ = godotenv.Load()
	}

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API, validated by ValidateLive
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet, err = getEnvAsBoolRequired("IS_TESTNET", true) // Default to testnet
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid IS_TESTNET: %v", err))
	}

	cfg.QuoteAsset = strings.ToUpper(getEnv("QUOTE_ASSET", "USDT"))

	cfg.MaxOpenPositions, err = getEnvAsIntRequired("MAX_OPEN_POSITIONS", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_OPEN_POSITIONS: %v", err))
	} else if cfg.MaxOpenPositions <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be positive")
	}

	cfg.BuyAmount, err = getEnvAsFloatRequired("BUY_AMOUNT", 20.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BUY_AMOUNT: %v", err))
	} else if cfg.BuyAmount <= 0 {
		errs = append(errs, "BUY_AMOUNT must be positive")
	}

	cfg.TakeProfit, err = getEnvAsFloatRequired("TAKE_PROFIT", 0.20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT: %v", err))
	} else if cfg.TakeProfit <= 0 {
		errs = append(errs, "TAKE_PROFIT must be positive")
	}

	cfg.StopLoss, err = getEnvAsFloatRequired("STOP_LOSS", 0.15)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	} else if cfg.StopLoss <= 0 || cfg.StopLoss >= 1.0 {
		errs = append(errs, "STOP_LOSS must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.FeeRate, err = getEnvAsFloatRequired("FEE_RATE", 0.001)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_RATE: %v", err))
	} else if cfg.FeeRate < 0 || cfg.FeeRate >= 0.1 {
		errs = append(errs, "FEE_RATE must be in [0, 0.1)")
	}

	if cfg.StopLoss > 0 && cfg.StopLoss+2*cfg.FeeRate >= 1.0 {
		errs = append(errs, "STOP_LOSS plus twice FEE_RATE must stay below 1.0")
	}

	cfg.MinLiquidity, err = getEnvAsFloatRequired("MIN_LIQUIDITY", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_LIQUIDITY: %v", err))
	} else if cfg.MinLiquidity < 0 {
		errs = append(errs, "MIN_LIQUIDITY cannot be negative")
	}

	cfg.StopLimitSlippage, err = getEnvAsFloatRequired("STOP_LIMIT_SLIPPAGE", 0.005)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LIMIT_SLIPPAGE: %v", err))
	} else if cfg.StopLimitSlippage < 0 || cfg.StopLimitSlippage >= 0.5 {
		errs = append(errs, "STOP_LIMIT_SLIPPAGE must be in [0, 0.5)")
	}

	cooldownMinutes, err := getEnvAsIntRequired("COOLDOWN_MINUTES", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid COOLDOWN_MINUTES: %v", err))
	} else if cooldownMinutes < 0 {
		errs = append(errs, "COOLDOWN_MINUTES cannot be negative")
	}
	cfg.Cooldown = time.Duration(cooldownMinutes) * time.Minute

	cfg.UnwindOnBracketFailure, err = getEnvAsBoolRequired("UNWIND_ON_BRACKET_FAILURE", true)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid UNWIND_ON_BRACKET_FAILURE: %v", err))
	}

	// Scheduling
	cfg.ScanInterval = getEnvAsSeconds("SCAN_INTERVAL_SECONDS", 30, &errs)
	cfg.PollInterval = getEnvAsSeconds("POLL_INTERVAL_SECONDS", 10, &errs)
	cfg.RequestTimeout = getEnvAsSeconds("REQUEST_TIMEOUT_SECONDS", 10, &errs)

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/listing_bot.db")

	// Logging
	if cfg.LogLevel, err = logger.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL: %v", err))
	}
	switch format := logger.Format(strings.ToLower(getEnv("LOG_FORMAT", "json"))); format {
	case logger.FormatJSON, logger.FormatConsole:
		cfg.LogFormat = format
	default:
		errs = append(errs, "LOG_FORMAT must be json or console")
	}

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	// Simulation
	if cfg.SimStart, err = getEnvAsDate("SIM_START"); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_START: %v", err))
	}
	if cfg.SimEnd, err = getEnvAsEndDate("SIM_END", time.Now().UTC()); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_END: %v", err))
	}
	cfg.SimInitialBalance, err = getEnvAsFloatRequired("SIM_INITIAL_BALANCE", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SIM_INITIAL_BALANCE: %v", err))
	} else if cfg.SimInitialBalance <= 0 {
		errs = append(errs, "SIM_INITIAL_BALANCE must be positive")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: configuration validation failed: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ValidateLive checks the settings only live trading needs.
func (c *Config) ValidateLive() error {
	var errs []string
	if c.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if c.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}
	return nil
}

// ValidateSimulation checks the simulation window against now.
func (c *Config) ValidateSimulation(now time.Time) error {
	return ValidateDateRange(c.SimStart, c.SimEnd, now)
}

// ValidateDateRange rejects missing, inverted or future-dated replay windows.
func ValidateDateRange(start, end, now time.Time) error {
	switch {
	case start.IsZero() || end.IsZero():
		return fmt.Errorf("%w: simulation start and end dates must be set", ports.ErrConfigurationError)
	case !start.Before(end):
		return fmt.Errorf("%w: simulation start %s must be before end %s", ports.ErrConfigurationError,
			start.Format(dateLayout), end.Format(dateLayout))
	case end.After(now):
		return fmt.Errorf("%w: simulation end %s is in the future", ports.ErrConfigurationError, end.Format(dateLayout))
	}
	return nil
}

// RiskConfig returns the shared entry and bracket parameters.
func (c *Config) RiskConfig() risk.Config {
	return risk.Config{
		MaxOpenPositions: c.MaxOpenPositions,
		BuyAmount:        c.BuyAmount,
		MinLiquidity:     c.MinLiquidity,
		TakeProfitPct:    c.TakeProfit,
		StopLossPct:      c.StopLoss,
		FeeRate:          c.FeeRate,
	}
}

// SimulationParams builds the replay parameters from the loaded settings.
func (c *Config) SimulationParams() domain.SimulationParams {
	return domain.SimulationParams{
		Start:            c.SimStart,
		End:              c.SimEnd,
		InitialBalance:   c.SimInitialBalance,
		BuyAmount:        c.BuyAmount,
		MaxOpenPositions: c.MaxOpenPositions,
		TakeProfitPct:    c.TakeProfit,
		StopLossPct:      c.StopLoss,
		FeeRate:          c.FeeRate,
		MinLiquidity:     c.MinLiquidity,
		Cooldown:         c.Cooldown,
	}
}

// ParseDate accepts 2006-01-02 or RFC3339 and returns UTC.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %s or RFC3339, got '%s'", dateLayout, value)
	}
	return t.UTC(), nil
}

// ParseEndDate parses the inclusive end of a window. A bare date covers the
// whole day, up to its last millisecond or now when the day is still running.
// RFC3339 values are taken as given.
func ParseEndDate(value string, now time.Time) (time.Time, error) {
	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return ParseDate(value)
	}
	end := day.Add(24*time.Hour - time.Millisecond)
	if now.Before(end) && !now.Before(day) {
		end = now.UTC()
	}
	return end, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBoolRequired(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsSeconds reads a positive whole number of seconds, appending any problem to errs.
func getEnvAsSeconds(key string, defaultValue int, errs *[]string) time.Duration {
	seconds, err := getEnvAsIntRequired(key, defaultValue)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid %s: %v", key, err))
		return 0
	}
	if seconds <= 0 {
		*errs = append(*errs, key+" must be positive")
	}
	return time.Duration(seconds) * time.Second
}

// getEnvAsEndDate is getEnvAsDate with ParseEndDate semantics.
func getEnvAsEndDate(key string, now time.Time) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Time{}, nil
	}
	return ParseEndDate(valueStr, now)
}

// getEnvAsDate returns the zero time when key is unset.
func getEnvAsDate(key string) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Time{}, nil
	}
	return ParseDate(valueStr)
}
