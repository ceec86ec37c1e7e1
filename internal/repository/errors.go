package repository

import "errors"

// ErrNotFound is the repository-level sentinel returned when a lookup for
// a single entity finds nothing. The service layer translates it into a
// domain error so business logic stays decoupled from the storage driver's
// own error values (sql.ErrNoRows, redis.Nil, ...).
var ErrNotFound = errors.New("repository: not found")
