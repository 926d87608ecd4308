// Package errors provides common domain error types for the mycroft agent.
//
// This package defines sentinel errors for common domain conditions like "not found"
// or "send limit reached" that can be used across all packages. Using typed errors
// enables consistent error handling patterns with errors.Is() checks.
//
// Usage:
//
//	import mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
//
//	// Return a domain error
//	return nil, mcerrors.ErrNotFound
//
//	// Check for domain errors
//	if mcerrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested item was not found in any container.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the item already exists in the destination container.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyClaimed indicates another agent already claimed the item.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrSendLimitReached indicates the daily outbound send limit has been hit.
	ErrSendLimitReached = errors.New("daily send limit reached")

	// ErrMissingReplyBlock indicates a reply plan carries no delimited reply body.
	ErrMissingReplyBlock = errors.New("missing reply block")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether any error in err's chain is ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAlreadyClaimed reports whether any error in err's chain is ErrAlreadyClaimed.
func IsAlreadyClaimed(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSendLimitReached reports whether any error in err's chain is ErrSendLimitReached.
func IsSendLimitReached(err error) bool {
	return errors.Is(err, ErrSendLimitReached)
}

// IsMissingReplyBlock reports whether any error in err's chain is ErrMissingReplyBlock.
func IsMissingReplyBlock(err error) bool {
	return errors.Is(err, ErrMissingReplyBlock)
}
