package dht

import "github.com/pkg/errors"

// InsertResult is the outcome of RoutingTable.Insert.
type InsertResult int

const (
	Inserted InsertResult = iota
	Updated
	Rejected
	Split
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Rejected:
		return "rejected"
	case Split:
		return "split"
	}
	return "unknown"
}

func (r InsertResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *InsertResult) UnmarshalText(text []byte) error {
	for _, candidate := range []InsertResult{Inserted, Updated, Rejected, Split} {
		if candidate.String() == string(text) {
			*r = candidate
			return nil
		}
	}
	return errors.Errorf("unknown insert result %q", text)
}

// Accepted reports whether the contact is now stored as a new entry.
func (r InsertResult) Accepted() bool {
	return r == Inserted || r == Split
}

type EventKind int

const (
	// EventFolded: a computed index exceeded the table and was folded into
	// the last bucket.
	EventFolded EventKind = iota
	EventInserted
	EventUpdated
	EventRejected
	// EventSplit: the last bucket was subdivided, Buckets is the new count.
	EventSplit
	// EventSplitStalled: a split would not have made room, nothing changed.
	EventSplitStalled
)

func (k EventKind) String() string {
	switch k {
	case EventFolded:
		return "folded"
	case EventInserted:
		return "inserted"
	case EventUpdated:
		return "updated"
	case EventRejected:
		return "rejected"
	case EventSplit:
		return "split"
	case EventSplitStalled:
		return "split-stalled"
	}
	return "unknown"
}

// Event is a structured diagnostic emitted by the routing table.
type Event struct {
	Kind    EventKind
	Contact Contact
	// Index is the unclamped bucket index of Contact (or of the lookup key).
	Index int
	// Bucket is the bucket actually touched.
	Bucket int
	// Buckets is the bucket count after the operation.
	Buckets int
}

// Observer receives events after the table lock has been released.
type Observer func(Event)
