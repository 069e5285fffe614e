package shared

import (
	"errors"
	"fmt"

	internalshared "github.com/pawsuite/pawsuite/internal/shared"
)

var (
	// ErrUnbalanced indicates debit != credit beyond the 0.01 tolerance.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrHeaderAccount indicates posting to a non-postable aggregator account.
	ErrHeaderAccount = errors.New("accounting: cannot post to header account")
	// ErrInactiveAccount indicates posting to a deactivated account.
	ErrInactiveAccount = errors.New("accounting: cannot post to inactive account")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = fmt.Errorf("accounting: %w: account", internalshared.ErrNotFound)
	// ErrJournalNotFound indicates a missing entry.
	ErrJournalNotFound = fmt.Errorf("accounting: %w: journal entry", internalshared.ErrNotFound)
	// ErrInvalidStatus indicates a forbidden status transition.
	ErrInvalidStatus = fmt.Errorf("accounting: %w: invalid journal status transition", internalshared.ErrStatusConflict)
	// ErrPeriodLocked indicates the accounting period is locked.
	ErrPeriodLocked = errors.New("accounting: period locked")
	// ErrPeriodClosed indicates the accounting period is closed.
	ErrPeriodClosed = errors.New("accounting: period closed")
	// ErrSourceAlreadyLinked indicates a second entry for the same source.
	ErrSourceAlreadyLinked = fmt.Errorf("accounting: %w: source already journalled", internalshared.ErrDuplicateEntry)
	// ErrDuplicateNumber indicates a journal number collision.
	ErrDuplicateNumber = fmt.Errorf("accounting: %w: journal number", internalshared.ErrDuplicateEntry)
	// ErrMappingNotFound indicates no account mapping for a key.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
	// ErrAccountInUse indicates an account with lines or children.
	ErrAccountInUse = errors.New("accounting: account has journal lines or children")
)
