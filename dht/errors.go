package dht

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfiguration is returned by NewRoutingTable for a zero kay,
	// or a key space outside 1..IDBits.
	ErrInvalidConfiguration = errors.New("invalid routing table configuration")

	// ErrSelfInsertion is returned when a contact carries the local id.
	ErrSelfInsertion = errors.New("contact has the local node id")

	// ErrRoutingInvariant marks a table whose buckets no longer agree with
	// their distance classes.
	ErrRoutingInvariant = errors.New("routing invariant violated")
)

// RoutingInvariantError reports a contact found in the last bucket whose
// distance class lies below that bucket's index.
type RoutingInvariantError struct {
	Bucket  int
	Index   int
	Contact Contact
}

func (e *RoutingInvariantError) Error() string {
	return fmt.Sprintf("%v: contact %s of class %d stored in bucket %d",
		ErrRoutingInvariant, e.Contact, e.Index, e.Bucket)
}

func (e *RoutingInvariantError) Unwrap() error {
	return ErrRoutingInvariant
}
