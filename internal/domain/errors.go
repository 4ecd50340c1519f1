// Package domain errors.go contains sentinel errors
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrMalformedUID       = errors.New("malformed uid")
	ErrOutOfRange         = errors.New("uid index out of range")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrDuplicateSecret    = errors.New("duplicate credential secret")
	ErrInvalidCount       = errors.New("invalid uid count")
)
