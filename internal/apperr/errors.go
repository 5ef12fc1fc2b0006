// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDate   = errors.New("invalid date format")
	ErrInvalidHours  = errors.New("hours out of range")
	ErrMissingInput  = errors.New("missing required input")
	ErrUnknownPreset = errors.New("unknown preset")
)
