package dht

// Bucket is an insertion-ordered group of contacts sharing one distance
// class. It has no lock of its own; the owning RoutingTable guards it.
type Bucket struct {
	contacts []Contact
}

func NewBucket(kay int) *Bucket {
	return &Bucket{
		contacts: make([]Contact, 0, kay),
	}
}

func newBucketFrom(contacts []Contact, kay int) *Bucket {
	b := NewBucket(kay)
	b.contacts = append(b.contacts, contacts...)
	return b
}

func (b *Bucket) indexOf(id NodeID) int {
	for i, existing := range b.contacts {
		if existing.ID == id {
			return i
		}
	}
	return -1
}

// moveToTail replaces the contact at i with c and makes it the most recently
// seen entry.
func (b *Bucket) moveToTail(i int, c Contact) {
	b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
	b.contacts = append(b.contacts, c)
}

func (b *Bucket) push(c Contact) {
	b.contacts = append(b.contacts, c)
}

func (b *Bucket) GetContacts() []Contact {
	snapshot := make([]Contact, len(b.contacts))
	copy(snapshot, b.contacts)
	return snapshot
}

func (b *Bucket) Len() int {
	return len(b.contacts)
}
