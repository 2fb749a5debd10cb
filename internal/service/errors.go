package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error categories. Handlers map them to responses with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrTransient        = errors.New("transient storage failure")
	ErrExternalPublish  = errors.New("external publish failed")
)

var (
	ErrPostNotFound     = fmt.Errorf("post %w", ErrNotFound)
	ErrReactionNotFound = fmt.Errorf("reaction %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrReactionExists = fmt.Errorf("%w: you have already reacted to this post", ErrConflict)
	ErrUsernameTaken  = fmt.Errorf("%w: user already exists", ErrConflict)

	ErrNotPostOwner = fmt.Errorf("%w: you don't have permission to modify or delete this post", ErrPermissionDenied)

	ErrScheduledInPast    = fmt.Errorf("%w: scheduled_at cannot be in the past", ErrValidation)
	ErrInvalidTransition  = fmt.Errorf("%w: post status transition not allowed", ErrValidation)
	ErrScheduleRequired   = fmt.Errorf("%w: scheduling requires a future scheduled_at", ErrValidation)
	ErrInvalidReaction    = fmt.Errorf("%w: unknown reaction type", ErrValidation)
	ErrInvalidPostStatus  = fmt.Errorf("%w: unknown post status", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

// storageError classifies an error returned by gorm. Record-not-found becomes
// notFound, everything else is treated as retryable.
func storageError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	// Sentinels raised inside transaction callbacks pass through untouched.
	for _, known := range []error{ErrNotFound, ErrConflict, ErrPermissionDenied, ErrValidation, ErrExternalPublish} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// isUniqueViolation reports whether err came from a unique index. gorm translates
// it when TranslateError is enabled; the string check covers handles opened without it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
