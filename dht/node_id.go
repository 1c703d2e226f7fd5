package dht

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/kutluhann/xorroute/constants"
	"github.com/kutluhann/xorroute/id_tools"
)

// IDBits is the raw width W of the identifier space.
const IDBits = constants.KeySizeBytes * 8

// NodeID names both nodes and lookup keys.
type NodeID id_tools.PeerID

// NodeIDFromUint64 places v in the low-order bytes of an otherwise zero id.
func NodeIDFromUint64(v uint64) NodeID {
	var id NodeID
	binary.BigEndian.PutUint64(id[len(id)-8:], v)
	return id
}

func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.Wrapf(err, "node id %q", s)
	}
	if len(raw) != len(id) {
		return id, errors.Errorf("node id %q: want %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func (id NodeID) Xor(other NodeID) NodeID {
	return NodeID(id_tools.PeerID(id).Xor(id_tools.PeerID(other)))
}

func (id NodeID) PrefixLen(other NodeID) int {
	return id_tools.PeerID(id).PrefixLen(id_tools.PeerID(other))
}

func (id NodeID) Less(other NodeID) bool {
	return id_tools.PeerID(id).Less(id_tools.PeerID(other))
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Distance is the XOR metric. It is zero only for equal ids.
func Distance(a, b NodeID) NodeID {
	return a.Xor(b)
}

// BucketIndex maps the distance between self and other to a bucket class.
// Longer shared prefixes give higher indices: keySpace-1 is the closest class
// and 0 the furthest. Distances with bits set above the keySpace resolution
// fall into bucket 0. Equal ids yield keySpace, one past the last class.
func BucketIndex(self, other NodeID, keySpace int) int {
	baseline := IDBits - keySpace
	index := self.PrefixLen(other) - baseline
	if index < 0 {
		return 0
	}
	return index
}

// ClampBucket folds an index beyond the current table into its last bucket.
// The second return value reports whether folding happened.
func ClampBucket(index, count int) (int, bool) {
	if index >= count {
		return count - 1, true
	}
	return index, false
}
