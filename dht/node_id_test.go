package dht

import (
	"math/rand"
	"net/netip"
	"testing"
)

func randomID(rng *rand.Rand) NodeID {
	var id NodeID
	rng.Read(id[:])
	return id
}

func TestDistance(t *testing.T) {
	if Distance(NodeIDFromUint64(0), NodeIDFromUint64(0)) != (NodeID{}) {
		t.Errorf("distance(0, 0) is not zero")
	}
	if Distance(NodeIDFromUint64(0), NodeIDFromUint64(1)) != NodeIDFromUint64(1) {
		t.Errorf("distance(0, 1) != 1")
	}
	if Distance(NodeIDFromUint64(2), NodeIDFromUint64(0)) != NodeIDFromUint64(2) {
		t.Errorf("distance(2, 0) != 2")
	}
	if Distance(NodeIDFromUint64(1), NodeIDFromUint64(2)) != NodeIDFromUint64(3) {
		t.Errorf("distance(1, 2) != 3")
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		a, b := randomID(rng), randomID(rng)
		if Distance(a, b) != Distance(b, a) {
			t.Fatalf("distance not symmetric for %s, %s", a, b)
		}
		if Distance(a, a) != (NodeID{}) {
			t.Fatalf("distance(%s, %s) is not zero", a, a)
		}
		if a != b && Distance(a, b) == (NodeID{}) {
			t.Fatalf("distinct ids at distance zero")
		}
	}
}

func TestBucketIndex(t *testing.T) {
	cases := []struct {
		self, other uint64
		keySpace    int
		want        int
	}{
		{0, 1, 4, 3},
		{0, 2, 4, 2},
		{0, 3, 4, 2},
		{0, 4, 4, 1},
		{0, 7, 4, 1},
		{0, 8, 4, 0},
		{0, 15, 4, 0},
		{0, 16, 4, 0}, // beyond the key space resolution
		{0, 1 << 40, 4, 0},
		{5, 5, 4, 4}, // self
		{0, 1, IDBits, IDBits - 1},
		{12, 13, 8, 7},
	}
	for _, tc := range cases {
		got := BucketIndex(NodeIDFromUint64(tc.self), NodeIDFromUint64(tc.other), tc.keySpace)
		if got != tc.want {
			t.Errorf("BucketIndex(%d, %d, %d) = %d, want %d", tc.self, tc.other, tc.keySpace, got, tc.want)
		}
	}

	var top NodeID
	top[0] = 0x80
	if got := BucketIndex(NodeID{}, top, IDBits); got != 0 {
		t.Errorf("top bit differs: got bucket %d, want 0", got)
	}
}

func TestClampBucket(t *testing.T) {
	if got, folded := ClampBucket(2, 3); got != 2 || folded {
		t.Errorf("ClampBucket(2, 3) = %d, %v", got, folded)
	}
	if got, folded := ClampBucket(3, 3); got != 2 || !folded {
		t.Errorf("ClampBucket(3, 3) = %d, %v", got, folded)
	}
	if got, folded := ClampBucket(9, 1); got != 0 || !folded {
		t.Errorf("ClampBucket(9, 1) = %d, %v", got, folded)
	}
}

func TestParseNodeID(t *testing.T) {
	id := NodeIDFromUint64(0xbeef)
	parsed, err := ParseNodeID(id.String())
	if err != nil {
		t.Fatalf("ParseNodeID: %v", err)
	}
	if parsed != id {
		t.Errorf("ParseNodeID(%s) = %s", id, parsed)
	}

	for _, bad := range []string{"", "zz", "beef", id.String() + "00"} {
		if _, err := ParseNodeID(bad); err == nil {
			t.Errorf("ParseNodeID(%q) accepted", bad)
		}
	}
}

func TestParseContact(t *testing.T) {
	want := Contact{ID: NodeIDFromUint64(42), IP: netip.MustParseAddr("10.0.0.7"), Port: 9001}
	got, err := ParseContact(want.String())
	if err != nil {
		t.Fatalf("ParseContact(%s): %v", want, err)
	}
	if got != want {
		t.Errorf("ParseContact(%s) = %v", want, got)
	}

	for _, bad := range []string{"10.0.0.7:9001", NodeIDFromUint64(1).String() + "@10.0.0.7", "xx@10.0.0.7:1"} {
		if _, err := ParseContact(bad); err == nil {
			t.Errorf("ParseContact(%q) accepted", bad)
		}
	}
}
