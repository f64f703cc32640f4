// Package repository defines the storage ports and their MySQL
// implementations. Sentinel errors declared here let handlers map
// storage failures onto HTTP statuses without inspecting driver
// errors. Lookups that find nothing return sql.ErrNoRows unchanged.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// email index. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrGroupExists is returned when a group name is already taken.
// Handlers translate this into HTTP 409.
var ErrGroupExists = errors.New("group already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else, such as commenting on an order
// claimed by a different manager. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrSessionBlocked is returned when a refresh loses the rotation race:
// the conditional block update matched no active row because another
// request (or a logout) already revoked the session.
var ErrSessionBlocked = errors.New("session already blocked")
