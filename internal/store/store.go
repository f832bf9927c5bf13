// Package store holds one store type per aggregate, each wrapping raw SQL
// against the shared database handle.
package store

import "errors"

// ErrStaleVersion is returned by update methods when the row's version no
// longer matches the version the caller read. Callers re-read the
// aggregate and retry the mutation.
var ErrStaleVersion = errors.New("stale aggregate version")
