package models

import (
	"errors"
	"fmt"
)

// Error kinds, ordered by where they surface: validation and conflict errors
// return synchronously from StartScan before anything is persisted, collaborator
// errors stay confined to a single task, persistence errors fail the whole scan.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation")
	ErrParse       = errors.New("parse")
	ErrMatch       = errors.New("match")
	ErrCheck       = errors.New("check")
	ErrTimeout     = errors.New("timeout")
	ErrPersistence = errors.New("persistence")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

func Matchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMatch, fmt.Sprintf(format, args...))
}

func Checkf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCheck, fmt.Sprintf(format, args...))
}

func Persistencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPersistence, fmt.Sprintf(format, args...))
}
