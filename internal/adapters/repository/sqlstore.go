package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// SQLStore is a Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	log     logger.Logger
	migrate bool
}

var _ Store = (*SQLStore)(nil)

// Open connects to driver ("sqlite" or "postgres") at dsn and applies the
// embedded schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	s := &SQLStore{dialect: d, log: logger.Nop(), migrate: true}
	for _, opt := range opts {
		opt(s)
	}

	if d.dsn != nil {
		dsn = d.dsn(dsn)
	}
	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	s.db = db

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if s.migrate {
		if _, err := db.ExecContext(ctx, d.schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	s.log.Info(ctx, "store opened", logger.String("driver", driver))
	return s, nil
}

// Update runs fn in a read-write transaction. It commits when fn returns nil.
func (s *SQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	start := time.Now()
	defer func() { metrics.RecordStoreTx("write", msSince(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&txn{tx: tx, d: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn over a consistent read snapshot.
func (s *SQLStore) View(ctx context.Context, fn func(Reader) error) error {
	start := time.Now()
	defer func() { metrics.RecordStoreTx("read", msSince(start)) }()

	tx, err := s.db.BeginTx(ctx, s.dialect.viewOpts)
	if err != nil {
		return fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read transactions never commit

	return fn(&txn{tx: tx, d: s.dialect})
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
