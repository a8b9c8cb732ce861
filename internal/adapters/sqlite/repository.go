package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"listingBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the symbol, trade, listing and simulation repositories using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var (
	_ ports.SymbolRepository     = (*Repository)(nil)
	_ ports.TradeRepository      = (*Repository)(nil)
	_ ports.ListingRepository    = (*Repository)(nil)
	_ ports.SimulationRepository = (*Repository)(nil)
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/listing_bot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers, which is what SQLite wants anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		take_profit REAL NOT NULL,
		stop_loss REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		pnl_percent REAL DEFAULT NULL,
		status TEXT NOT NULL,
		entry_order_id TEXT NOT NULL,
		tp_order_id TEXT NOT NULL,
		sl_order_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS known_symbols (
		symbol TEXT PRIMARY KEY
	);

	-- one row per detection, a relisted symbol gets a new row
	CREATE TABLE IF NOT EXISTS listing_history (
		symbol TEXT NOT NULL,
		detected_at INTEGER NOT NULL, -- unix millis
		PRIMARY KEY (symbol, detected_at)
	);

	CREATE TABLE IF NOT EXISTS listing_events (
		symbol TEXT NOT NULL,
		listing_time INTEGER NOT NULL, -- unix millis
		open_price REAL NOT NULL,
		price_1h REAL NOT NULL,
		price_24h REAL NOT NULL,
		price_48h REAL NOT NULL,
		volume REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		PRIMARY KEY (symbol, listing_time)
	);

	CREATE TABLE IF NOT EXISTS simulation_runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		total_trades INTEGER NOT NULL,
		total_return REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		params TEXT NOT NULL,  -- JSON
		metrics TEXT NOT NULL  -- JSON
	);

	CREATE INDEX IF NOT EXISTS idx_trades_status ON trades (status);
	CREATE INDEX IF NOT EXISTS idx_listing_events_time ON listing_events (listing_time);
	CREATE INDEX IF NOT EXISTS idx_listing_history_time ON listing_history (detected_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- Helpers ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
