package storage

import (
	"errors"
	"fmt"
	"strings"

	"aph/internal/adapters/supabase"
)

// ErrNotFound is returned by writes that target a record that does not
// exist. Reads report absence as a nil result instead.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write violates a uniqueness rule.
var ErrConflict = errors.New("record already exists")

// ErrConcurrentUpdate is returned when a compare-and-swap write keeps
// losing to other writers.
var ErrConcurrentUpdate = errors.New("record changed concurrently, try again")

// FromSQLite maps driver errors onto the storage sentinels.
func FromSQLite(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// FromREST maps hosted backend errors onto the storage sentinels.
func FromREST(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, supabase.ErrNoRows) {
		return ErrNotFound
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.IsConflict() {
		return fmt.Errorf("%w: %v", ErrConflict, apiErr)
	}
	return err
}
