// Package repository implements database access for users, tours, reviews
// and bookings on plain database/sql. Sentinel errors defined here let
// handlers map storage failures onto the HTTP error taxonomy without
// inspecting driver internals.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with the
// unique email index. Handlers translate it into a duplicate-field 400.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned for other unique-key collisions, e.g. a second
// review by the same user on the same tour.
var ErrDuplicate = errors.New("duplicate record")

// Row absence is conveyed as sql.ErrNoRows, matching database/sql
// conventions; callers test with errors.Is.
