// Package storage holds what the store adapters share. The adapters live in
// the memory, postgres and graph subpackages.
package storage

import (
	"errors"
	"fmt"
)

// ErrPersistence wraps every failure of a backing store. Missing jobs and
// candidates are reported as staffing.ErrNotFound instead.
var ErrPersistence = errors.New("persistence failure")

// Wrap marks err as a persistence failure of op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
