// Package apperr holds sentinel errors shared across repositories so that
// services can branch on storage outcomes without importing pgx.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
