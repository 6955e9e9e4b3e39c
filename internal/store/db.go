package store

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/logger"
)

// Store wraps the gorm connection pool. Workers never touch *gorm.DB
// directly outside this package; every query a stage worker issues goes
// through one of the typed repository methods below.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// Open dials Postgres at dsn, sizes the connection pool, and runs
// AutoMigrate for the columns gorm can express (schema.go documents the
// constraints AutoMigrate cannot: CHECK constraints and the composite
// unique index on mint_events).
func Open(dsn string, poolSize int) (*Store, error) {
	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.DB().SetMaxOpenConns(poolSize)
	db.DB().SetMaxIdleConns(poolSize / 4)

	if err := db.AutoMigrate(
		&Author{},
		&Token{},
		&MintEvent{},
		&RevealTransaction{},
		&SystemState{},
		&ImageGenerationJob{},
		&IPFSUploadRecord{},
	).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	s := &Store{db: db, log: logger.For(logger.Store)}
	if err := s.ApplyConstraints(); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply constraints: %w", err)
	}

	return s, nil
}

// Close releases the connection pool (spec.md §4.8 "close the connection
// pool" on shutdown).
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping probes the connection for the health endpoint (spec.md §4.9).
func (s *Store) Ping() error {
	return s.db.DB().Ping()
}
