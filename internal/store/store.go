// Package store is the persistence layer for monitored URLs, check
// results, incidents and alert configurations. All access to the
// database goes through a Store; check recording is safe under
// concurrent calls from independent URL workers.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the database handle
type Store struct {
	db *gorm.DB
}

// New creates a new Store
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
