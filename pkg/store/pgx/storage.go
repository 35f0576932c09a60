// Package pgx implements the storage interfaces on PostgreSQL, using
// pgvector for the chunk embedding index.
package pgx

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/OFFIS-RIT/alavista/pkg/logger"
)

// Store implements store.GraphStorage, store.CorpusStorage and
// vector.Index on a pgx connection pool. Graph writes are serialized per
// corpus so merge-or-create upserts stay race-free.
type Store struct {
	pool *pgxpool.Pool

	lockMu      sync.Mutex
	corpusLocks map[string]*sync.Mutex
}

// NewStore opens a pool against databaseURL and registers the pgvector
// types on every connection.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{
		pool:        pool,
		corpusLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies all pending schema migrations from sourceURL (e.g.
// "file://migrations") to databaseURL.
func Migrate(databaseURL, sourceURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

// corpusLock returns the write mutex for one corpus, creating it on first
// use.
func (s *Store) corpusLock(corpusID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.corpusLocks[corpusID]
	if !ok {
		lock = &sync.Mutex{}
		s.corpusLocks[corpusID] = lock
	}
	return lock
}
