package services

import (
	"errors"

	"github.com/sjperalta/village-settlement-api/internal/repository"
)

// translate maps repository errors onto service errors. notFound is returned
// for missing rows; lost optimistic races and lock timeouts become
// ErrConcurrentModification.
func translate(err error, notFound *Error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && repository.IsNotFound(err):
		return notFound
	case errors.Is(err, repository.ErrStaleVersion), repository.IsLockTimeout(err):
		return ErrConcurrentModification
	default:
		return err
	}
}
