package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"carprice/ml"
	"carprice/pricing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultLimit is used when RecentPredictions gets a non-positive limit.
const DefaultLimit = 20

// MaxLimit caps how many rows a single history query returns.
const MaxLimit = 500

var errNotInitialized = errors.New("database not initialized")

// Store keeps the prediction history.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := runMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: database}, nil
}

func runMigrations(database *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	defer src.Close()

	driver, err := sqlite3.WithInstance(database, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would also close database, which the store keeps using.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SavePrediction stores r. A missing ID or timestamp is filled in.
func (s *Store) SavePrediction(ctx context.Context, r pricing.Result) (string, error) {
	if s == nil || s.db == nil {
		return "", errNotInitialized
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, highwaympg, curbweight, horsepower, price, formatted, cached, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Features.HighwayMPG, r.Features.Curbweight, r.Features.Horsepower,
		r.Price, r.Formatted, r.Cached, r.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("save prediction: %w", err)
	}
	return r.ID, nil
}

// Record implements pricing.Recorder.
func (s *Store) Record(ctx context.Context, r pricing.Result) error {
	_, err := s.SavePrediction(ctx, r)
	return err
}

// RecentPredictions returns up to limit results, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]pricing.Result, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, highwaympg, curbweight, horsepower, price, formatted, cached, created_at
		FROM predictions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	results := []pricing.Result{}
	for rows.Next() {
		var (
			r       pricing.Result
			f       ml.Features
			created int64
		)
		if err := rows.Scan(&r.ID, &f.HighwayMPG, &f.Curbweight, &f.Horsepower,
			&r.Price, &r.Formatted, &r.Cached, &created); err != nil {
			return nil, err
		}
		r.Features = f
		r.CreatedAt = time.Unix(0, created).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}
