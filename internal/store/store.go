// Package store provides the durable event store behind the attendance
// resolver: a Postgres backend for kiosk deployments and an in-memory
// backend for tests and dev mode.
package store

import "errors"

// ErrNotFound is returned when an update or get targets a missing record id.
var ErrNotFound = errors.New("attendance record not found")
