// Package opid issues time-ordered operation ids used to correlate the log
// lines of one store operation.
package opid

import (
	"github.com/google/uuid"
)

var newV7 = uuid.NewV7

// New returns a UUIDv7 string. If the random source fails it falls back to
// a v4 id so logging never blocks a write.
func New() string {
	u, err := newV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}
