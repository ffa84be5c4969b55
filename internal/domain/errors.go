package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")

	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// ShortageError reports a counter that would go negative.
type ShortageError struct {
	VariantID string `json:"variantId"`
	Bucket    Bucket `json:"bucket"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient %s for variant %s: required %d, available %d",
		e.Bucket, e.VariantID, e.Required, e.Available)
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }
