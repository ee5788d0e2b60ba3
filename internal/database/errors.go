package database

import "errors"

// Sentinels returned by the stores, optionally wrapped. Services translate
// them into application errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("duplicate record")
)
