// Package repository provides gorm-backed CRUD access to clients, invoices,
// templates, log entries, email settings and operators.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateClient is returned when (name, site) already exists.
	ErrDuplicateClient = errors.New("client with this name already exists at this site")
)

// NumberCollisionError reports an invoice number rejected by the unique index.
type NumberCollisionError struct {
	Number string
	Err    error
}

func (e *NumberCollisionError) Error() string {
	return fmt.Sprintf("invoice number %s already exists", e.Number)
}

func (e *NumberCollisionError) Unwrap() error { return e.Err }

// Store wraps a gorm handle. A Store obtained from Transaction is bound to that transaction.
type Store struct {
	db *gorm.DB
}

// New returns a Store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn inside a database transaction. Nested calls reuse gorm savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
