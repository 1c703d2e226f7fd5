package dht

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LookupPolicy selects how a Node answers "who is near X".
type LookupPolicy int

const (
	// PolicyExact sorts every known contact by XOR distance to the key.
	PolicyExact LookupPolicy = iota
	// PolicyBucketOrder returns RoutingTable.Lookup as is.
	PolicyBucketOrder
)

func ParseLookupPolicy(s string) (LookupPolicy, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return PolicyExact, nil
	case "bucket":
		return PolicyBucketOrder, nil
	}
	return PolicyExact, errors.Errorf("unknown lookup policy %q", s)
}

func (p LookupPolicy) String() string {
	if p == PolicyBucketOrder {
		return "bucket"
	}
	return "exact"
}

// Node is the local participant: its own contact plus the routing table the
// protocol layer feeds with observed peers.
type Node struct {
	Self         Contact
	RoutingTable *RoutingTable
	Policy       LookupPolicy

	logger *zap.Logger
}

func NewNode(self Contact, keySpace, kay int, policy LookupPolicy, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Node{
		Self:   self,
		Policy: policy,
		logger: logger.With(zap.Stringer("node_id", self.ID)),
	}

	rt, err := NewRoutingTable(self.ID, keySpace, kay, WithObserver(n.observe))
	if err != nil {
		return nil, err
	}
	n.RoutingTable = rt
	return n, nil
}

func (n *Node) observe(e Event) {
	fields := []zap.Field{
		zap.Stringer("event", e.Kind),
		zap.Int("index", e.Index),
		zap.Int("bucket", e.Bucket),
		zap.Int("buckets", e.Buckets),
	}
	if e.Contact.ID != (NodeID{}) || e.Contact.IP.IsValid() {
		fields = append(fields, zap.Stringer("peer", e.Contact))
	}

	switch e.Kind {
	case EventSplit:
		n.logger.Info("routing table split", fields...)
	case EventSplitStalled:
		n.logger.Warn("bucket split made no room", fields...)
	default:
		n.logger.Debug("routing table event", fields...)
	}
}

// ObservePeer is the passive update every inbound message or response
// triggers.
func (n *Node) ObservePeer(c Contact) (InsertResult, error) {
	result, err := n.RoutingTable.Insert(c)
	if err != nil {
		if errors.Is(err, ErrRoutingInvariant) {
			n.logger.Error("routing table corrupted", zap.Error(err))
		}
		return result, err
	}
	return result, nil
}

// ClosestPeers answers from local knowledge only, following n.Policy.
func (n *Node) ClosestPeers(key NodeID) []Contact {
	if n.Policy == PolicyBucketOrder {
		return n.RoutingTable.Lookup(key)
	}
	return n.RoutingTable.Closest(key, n.RoutingTable.Kay())
}

// HandleFindNode is called when someone asks us "Who is close to X?"
func (n *Node) HandleFindNode(sender Contact, target NodeID) []Contact {
	if _, err := n.ObservePeer(sender); err != nil && !errors.Is(err, ErrSelfInsertion) {
		n.logger.Warn("sender not recorded", zap.Stringer("sender", sender), zap.Error(err))
	}
	return n.ClosestPeers(target)
}

// RoutingTableInfo is a point-in-time view used by the status endpoints.
type RoutingTableInfo struct {
	NodeID     NodeID      `json:"node_id"`
	KeySpace   int         `json:"key_space"`
	Kay        int         `json:"kay"`
	Population int         `json:"population"`
	Buckets    [][]Contact `json:"buckets"`
}

func (n *Node) GetRoutingTableInfo() RoutingTableInfo {
	buckets := n.RoutingTable.Snapshot()
	population := 0
	for _, b := range buckets {
		population += len(b)
	}
	return RoutingTableInfo{
		NodeID:     n.Self.ID,
		KeySpace:   n.RoutingTable.KeySpace(),
		Kay:        n.RoutingTable.Kay(),
		Population: population,
		Buckets:    buckets,
	}
}
