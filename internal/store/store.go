// Package store owns the transactional authority: a single gorm-backed
// database through which every mutating operation runs as one atomic unit.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an already-open gorm handle; tests use this with the sqlite
// driver.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&domain.Session{},
		&domain.Game{},
		&domain.LedgerEntry{},
		&domain.Participant{},
		&domain.Message{},
		&domain.Champion{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) DB() *gorm.DB { return s.db }

// Tx runs fn inside a transaction; the races the draft core must survive
// (same action index, same slot claim) resolve to conditional updates whose
// zero-rows-affected outcome fn reports as a conflict.
func (s *Store) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
