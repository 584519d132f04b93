/*
Resultstore persists a BacktestResult and its per-strategy rows to
Postgres, so runs can be compared across config hashes after the
process exits. Adapted from the teacher's pkg/conn/pg.go connection
option shape.

# Module
  - Store: gorm-backed connection, Migrate, Save
  - Run / StrategyRun: the persisted rows

# Source
  - engine.BacktestResult, handed over by cmd/backtest once a run completes

# Produce
  - rows in the arbitragefx_runs / arbitragefx_strategy_runs tables

# Sharded
  - none; one Store per process, one row per run
*/
package resultstore

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"arbitragefx/internal/engine"
	"arbitragefx/internal/errors"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Option configures the Postgres connection, mirroring the teacher's
// connection-option shape.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Config     *gorm.Config
}

// Run is the persisted top-level row for one backtest.
type Run struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ConfigHash  string `gorm:"index;size:64"`
	CandleCount int
	TotalPnl    float64
	MaxDrawdown float64
	BuyHoldPnl  float64
	HaltReason  string
	Strategies  []StrategyRun `gorm:"foreignKey:RunID"`
}

// StrategyRun is one strategy's row within a Run.
type StrategyRun struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	RunID        uint64 `gorm:"index"`
	StrategyID   string `gorm:"size:128"`
	Pnl          float64
	EquityPnl    float64
	Equity       float64
	Friction     float64
	MaxDrawdown  float64
	Trades       uint64
	Wins         uint64
	Losses       uint64
	ForcedCloses uint64
}

// Store wraps a connection pool dedicated to result persistence.
type Store struct {
	opt Option
	db  *gorm.DB
}

// New opens a Postgres connection from the given options.
func New(option Option) (*Store, error) {
	dsn, err := option.dsn()
	if err != nil {
		return nil, errors.Wrap(err, "resultstore: build dsn")
	}

	cfg := option.Config
	if cfg == nil {
		cfg = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "resultstore: open connection")
	}

	return &Store{opt: option, db: db}, nil
}

// DB returns the underlying gorm.DB, for callers that need raw access.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the result tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Run{}, &StrategyRun{})
}

// Save writes one BacktestResult and its per-strategy rows in a single
// transaction.
func (s *Store) Save(ctx context.Context, result engine.BacktestResult) error {
	run := Run{
		ConfigHash:  result.ConfigHash,
		CandleCount: result.CandleCount,
		TotalPnl:    result.TotalPnl,
		MaxDrawdown: result.MaxDrawdown,
		BuyHoldPnl:  result.BuyHoldPnl,
		HaltReason:  result.HaltReason,
	}
	for _, sr := range result.Strategies {
		run.Strategies = append(run.Strategies, StrategyRun{
			StrategyID:   sr.ID,
			Pnl:          sr.Pnl,
			EquityPnl:    sr.EquityPnl,
			Equity:       sr.Equity,
			Friction:     sr.Friction,
			MaxDrawdown:  sr.MaxDrawdown,
			Trades:       sr.Trades,
			Wins:         sr.Wins,
			Losses:       sr.Losses,
			ForcedCloses: sr.ForcedCloses,
		})
	}
	return s.db.WithContext(ctx).Create(&run).Error
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}

	host := opt.Host
	if host == "" {
		host = defaultHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}
