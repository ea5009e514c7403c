// Package db is the relational store behind Deepfake Shield: users, scan
// logs and admin alerts, plus the raw query primitives the rollups use.
//
// A Store is created with New, becomes usable after Open and unusable again
// after Close. Every open drops and recreates the schema and loads the demo
// seed, so each process starts from the same first-run state.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var (
	// ErrUninitialized is returned by every operation on a store that is not open.
	ErrUninitialized = errors.New("store not initialized")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidScanLog is returned when a scan log violates the result or confidence constraints.
	ErrInvalidScanLog = errors.New("invalid scan log")
)

// Row is one result row keyed by column name.
type Row = map[string]any

// ExecResult reports the effect of a mutating statement.
type ExecResult struct {
	RowsAffected   int64 `json:"rows_affected"`
	LastInsertedID int64 `json:"last_inserted_id"`
}

// Options configure a Store.
type Options struct {
	Driver   string          // sqlite (default), mysql or postgres
	DSN      string          // connection string; sqlite defaults to a private in-memory database
	LogLevel logger.LogLevel // gorm log level, Silent when zero
	Now      func() time.Time
}

// Store owns every row of the demo dataset.
type Store struct {
	opts     Options
	now      func() time.Time
	validate *validator.Validate

	mu sync.RWMutex
	db *gorm.DB
}

// New returns an unopened store.
func New(opts Options) *Store {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Silent
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		opts:     opts,
		now:      func() time.Time { return now().UTC() },
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Open connects, recreates the schema and seeds the demo data.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	dialector, err := s.dialector()
	if err != nil {
		return err
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  s.opts.LogLevel,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: s.now,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.opts.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if s.opts.Driver == DriverSQLite {
		// one connection keeps the in-memory database alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}

	gdb = gdb.WithContext(ctx)
	if err := resetSchema(gdb); err != nil {
		_ = sqlDB.Close()
		return err
	}
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return seed(tx, s.now())
	}); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("seed: %w", err)
	}

	s.db = gdb.WithContext(context.Background())
	logrus.WithFields(logrus.Fields{
		"driver": s.opts.Driver,
	}).Info("Store opened and seeded")
	return nil
}

// Close releases the connection. Further calls fail with ErrUninitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the store is open and the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrUninitialized
	}
	return s.db.WithContext(ctx), nil
}

func (s *Store) dialector() (gorm.Dialector, error) {
	switch s.opts.Driver {
	case DriverSQLite:
		dsn := s.opts.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("file:deepfake-shield-%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
		}
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(s.opts.DSN), nil
	case DriverPostgres:
		return postgres.Open(s.opts.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", s.opts.Driver)
	}
}

// QueryAll runs a read query with positional parameters.
func (s *Store) QueryAll(ctx context.Context, query string, params ...any) ([]Row, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Raw(query, params...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query: %w", translate(err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("query scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = plainValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return out, nil
}

// plainValue turns driver text bytes into strings; mysql returns []byte for
// text and numeric expressions alike.
func plainValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// QueryOne returns the first row of QueryAll, or ErrNotFound.
func (s *Store) QueryOne(ctx context.Context, query string, params ...any) (Row, error) {
	rows, err := s.QueryAll(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Execute runs a mutating statement. For INSERTs the generated id is read
// back on the same connection inside one transaction.
func (s *Store) Execute(ctx context.Context, stmt string, params ...any) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	var out ExecResult
	err = conn.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(stmt, params...)
		if res.Error != nil {
			return res.Error
		}
		out.RowsAffected = res.RowsAffected
		if !isInsert(stmt) {
			return nil
		}
		q := lastInsertIDQuery(tx.Dialector.Name())
		if q == "" {
			return nil
		}
		return tx.Raw(q).Scan(&out.LastInsertedID).Error
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("execute: %w", translate(err))
	}
	return out, nil
}

func isInsert(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "INSERT")
}

func lastInsertIDQuery(dialect string) string {
	switch dialect {
	case "sqlite":
		return "SELECT last_insert_rowid()"
	case "mysql":
		return "SELECT LAST_INSERT_ID()"
	case "postgres":
		return "SELECT lastval()"
	}
	return ""
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isCheckViolation(err):
		return fmt.Errorf("%w: %v", ErrInvalidScanLog, err)
	}
	return err
}

// sqlite, mysql and postgres all mention "check constraint" in the message
func isCheckViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "check constraint")
}
