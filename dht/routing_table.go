package dht

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// RoutingTable partitions known contacts into prefix-length buckets.
//
// Bucket i holds contacts whose distance class (see BucketIndex) is i; the
// last bucket is a catch-all for every class at or above its index. Only the
// last bucket can split, and the bucket list only ever grows.
type RoutingTable struct {
	self     NodeID
	keySpace int
	kay      int
	buckets  []*Bucket
	observer Observer
	mutex    sync.RWMutex
}

type Option func(*RoutingTable)

// WithObserver registers fn to receive every Event the table emits.
func WithObserver(fn Observer) Option {
	return func(rt *RoutingTable) {
		rt.observer = fn
	}
}

func NewRoutingTable(self NodeID, keySpace, kay int, opts ...Option) (*RoutingTable, error) {
	if keySpace <= 0 || keySpace > IDBits || kay <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "key space %d, kay %d", keySpace, kay)
	}

	rt := &RoutingTable{
		self:     self,
		keySpace: keySpace,
		kay:      kay,
		buckets:  make([]*Bucket, 0, keySpace),
	}
	rt.buckets = append(rt.buckets, NewBucket(kay))
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *RoutingTable) Self() NodeID  { return rt.self }
func (rt *RoutingTable) KeySpace() int { return rt.keySpace }
func (rt *RoutingTable) Kay() int      { return rt.kay }

func (rt *RoutingTable) Population() int {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	return rt.population()
}

func (rt *RoutingTable) population() int {
	total := 0
	for _, b := range rt.buckets {
		total += b.Len()
	}
	return total
}

func (rt *RoutingTable) BucketCount() int {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	return len(rt.buckets)
}

// BucketSizes returns the population of every bucket, furthest first.
func (rt *RoutingTable) BucketSizes() []int {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	sizes := make([]int, len(rt.buckets))
	for i, b := range rt.buckets {
		sizes[i] = b.Len()
	}
	return sizes
}

// Snapshot returns a deep copy of every bucket.
func (rt *RoutingTable) Snapshot() [][]Contact {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	out := make([][]Contact, len(rt.buckets))
	for i, b := range rt.buckets {
		out[i] = b.GetContacts()
	}
	return out
}

func (rt *RoutingTable) index(id NodeID) int {
	return BucketIndex(rt.self, id, rt.keySpace)
}

// Insert records an observed contact.
//
// A full bucket other than the last rejects the contact; a full last bucket
// is split first. A contact already present is refreshed in place and moved
// to the tail of its bucket.
func (rt *RoutingTable) Insert(c Contact) (InsertResult, error) {
	if c.ID == rt.self {
		return Rejected, ErrSelfInsertion
	}

	rt.mutex.Lock()
	result, events, err := rt.insert(c)
	rt.mutex.Unlock()

	rt.notify(events...)
	return result, err
}

func (rt *RoutingTable) insert(c Contact) (InsertResult, []Event, error) {
	var events []Event

	raw := rt.index(c.ID)
	last := len(rt.buckets) - 1
	target, folded := ClampBucket(raw, len(rt.buckets))
	if folded {
		events = append(events, rt.event(EventFolded, c, raw, target))
	}

	bucket := rt.buckets[target]
	if i := bucket.indexOf(c.ID); i >= 0 {
		bucket.moveToTail(i, c)
		return Updated, append(events, rt.event(EventUpdated, c, raw, target)), nil
	}

	if bucket.Len() < rt.kay {
		bucket.push(c)
		return Inserted, append(events, rt.event(EventInserted, c, raw, target)), nil
	}

	if target != last {
		return Rejected, append(events, rt.event(EventRejected, c, raw, target)), nil
	}
	return rt.split(c, raw, events)
}

// split redistributes the last bucket by unclamped distance class, grows the
// bucket list far enough to hold both the redistributed contacts and c, and
// then stores c. raw is c's class and is never below the last index here.
func (rt *RoutingTable) split(c Contact, raw int, events []Event) (InsertResult, []Event, error) {
	last := len(rt.buckets) - 1

	groups := make(map[int][]Contact)
	closest := raw
	for _, existing := range rt.buckets[last].contacts {
		index := rt.index(existing.ID)
		if index < last {
			return Rejected, events, &RoutingInvariantError{Bucket: last, Index: index, Contact: existing}
		}
		groups[index] = append(groups[index], existing)
		if index > closest {
			closest = index
		}
	}

	// Every contact shares c's class: no amount of splitting makes room.
	if len(groups[raw]) >= rt.kay {
		return Rejected, append(events, rt.event(EventSplitStalled, c, raw, last)), nil
	}

	rt.buckets[last] = newBucketFrom(groups[last], rt.kay)
	for index := last + 1; index <= closest; index++ {
		rt.buckets = append(rt.buckets, newBucketFrom(groups[index], rt.kay))
	}
	rt.buckets[raw].push(c)

	return Split, append(events, rt.event(EventSplit, c, raw, raw)), nil
}

// Lookup returns at most kay contacts in bucket order: the bucket key falls
// into, every closer bucket after it, then the further buckets walking back
// towards bucket 0. Contacts are not re-sorted by distance to key.
func (rt *RoutingTable) Lookup(key NodeID) []Contact {
	rt.mutex.RLock()
	raw := rt.index(key)
	start, folded := ClampBucket(raw, len(rt.buckets))

	result := make([]Contact, 0, rt.kay)
	for i := start; i < len(rt.buckets) && len(result) < rt.kay; i++ {
		result = append(result, rt.buckets[i].contacts...)
	}
	for i := start - 1; i >= 0 && len(result) < rt.kay; i-- {
		result = append(result, rt.buckets[i].contacts...)
	}
	count := len(rt.buckets)
	rt.mutex.RUnlock()

	if folded {
		rt.notify(Event{Kind: EventFolded, Index: raw, Bucket: start, Buckets: count})
	}
	if len(result) > rt.kay {
		result = result[:rt.kay]
	}
	return result
}

// Closest returns the count contacts nearest to key by exact XOR distance.
// A count of zero or less means kay.
func (rt *RoutingTable) Closest(key NodeID, count int) []Contact {
	if count <= 0 {
		count = rt.kay
	}

	rt.mutex.RLock()
	candidates := make([]Contact, 0, rt.population())
	for _, b := range rt.buckets {
		candidates = append(candidates, b.contacts...)
	}
	rt.mutex.RUnlock()

	SortByDistance(candidates, key)
	if len(candidates) > count {
		return candidates[:count]
	}
	return candidates
}

func (rt *RoutingTable) event(kind EventKind, c Contact, raw, bucket int) Event {
	return Event{
		Kind:    kind,
		Contact: c,
		Index:   raw,
		Bucket:  bucket,
		Buckets: len(rt.buckets),
	}
}

func (rt *RoutingTable) notify(events ...Event) {
	if rt.observer == nil {
		return
	}
	for _, e := range events {
		rt.observer(e)
	}
}

// ContactSorter helps us sort a list of contacts by distance
type ContactSorter struct {
	contacts []Contact
	target   NodeID
}

func (s *ContactSorter) Len() int      { return len(s.contacts) }
func (s *ContactSorter) Swap(i, j int) { s.contacts[i], s.contacts[j] = s.contacts[j], s.contacts[i] }
func (s *ContactSorter) Less(i, j int) bool {
	return Distance(s.contacts[i].ID, s.target).Less(Distance(s.contacts[j].ID, s.target))
}

// SortByDistance orders contacts in place, closest to target first.
func SortByDistance(contacts []Contact, target NodeID) {
	sort.Sort(&ContactSorter{contacts: contacts, target: target})
}
