// Package store is the repository layer over the project's sqlite
// database: one repository type per table, mirroring pkg/services in the
// teacher.
package store

import "errors"

var (
	// ErrNotFound is returned when a lookup by id finds no row.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by creates that collide on a unique key.
	ErrAlreadyExists = errors.New("already exists")
)
