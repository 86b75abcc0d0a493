package services

import (
	"errors"
	"fmt"

	"github.com/salonfield/backoffice/internal/repositories"
)

var (
	// ErrInvalidInput signals the caller provided malformed data.
	ErrInvalidInput = errors.New("order: invalid input")
	// ErrInvalidAmount signals a refund amount outside the refundable balance.
	ErrInvalidAmount = errors.New("order: invalid amount")
	// ErrInvalidState indicates an operation attempted from a disallowed
	// order or payment status.
	ErrInvalidState = errors.New("order: invalid state")
	// ErrNotFound indicates the order could not be located.
	ErrNotFound = errors.New("order: not found")
	// ErrConflict indicates a lost optimistic version check or duplicate.
	ErrConflict = errors.New("order: conflict")
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: store unavailable: %w", err)
		}
	}

	return err
}
