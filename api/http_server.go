package api

import (
	"fmt"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/kutluhann/xorroute/dht"
)

// PeerRequest represents the JSON payload for recording an observed peer
type PeerRequest struct {
	ID   string `json:"id"`
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

// PeerResponse reports what the routing table did with the peer
type PeerResponse struct {
	Result  dht.InsertResult `json:"result"`
	Message string           `json:"message,omitempty"`
	Buckets int              `json:"buckets"`
}

// LookupResponse lists the locally known contacts closest to a key
type LookupResponse struct {
	Key      dht.NodeID    `json:"key"`
	Policy   string        `json:"policy"`
	Contacts []dht.Contact `json:"contacts"`
}

// StatusResponse represents node status information
type StatusResponse struct {
	NodeID      string `json:"node_id"`
	IP          string `json:"ip"`
	Port        uint16 `json:"port"`
	KnownPeers  int    `json:"known_peers"`
	Buckets     []int  `json:"buckets"`
	KeySpace    int    `json:"key_space"`
	Kay         int    `json:"kay"`
	LookupOrder string `json:"lookup_policy"`
}

// wireContact is the msgpack shape of a contact.
type wireContact struct {
	ID   []byte `msgpack:"id"`
	IP   string `msgpack:"ip"`
	Port uint16 `msgpack:"port"`
}

type wireTable struct {
	NodeID   []byte          `msgpack:"node_id"`
	KeySpace int             `msgpack:"key_space"`
	Kay      int             `msgpack:"kay"`
	Buckets  [][]wireContact `msgpack:"buckets"`
}

// HTTPServer wraps the DHT node and provides HTTP endpoints
type HTTPServer struct {
	Node *dht.Node
	Port int

	logger *zap.Logger
}

// NewHTTPServer creates a new HTTP server instance
func NewHTTPServer(node *dht.Node, port int, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		Node:   node,
		Port:   port,
		logger: logger,
	}
}

// Router builds the route table; Start serves it.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/routing-table", s.handleRoutingTable)
	r.Post("/peers", s.handlePeer)
	r.Get("/lookup/{key}", s.handleLookup)
	return r
}

// Start begins listening for HTTP requests
func (s *HTTPServer) Start() error {
	addr := fmt.Sprintf(":%d", s.Port)
	s.logger.Info("starting HTTP API", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// handleHealth is a simple health check endpoint
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "healthy",
	})
}

// handleStatus returns information about the node
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	rt := s.Node.RoutingTable
	sizes := rt.BucketSizes()
	known := 0
	for _, n := range sizes {
		known += n
	}

	render.JSON(w, r, StatusResponse{
		NodeID:      s.Node.Self.ID.String(),
		IP:          s.Node.Self.IP.String(),
		Port:        s.Node.Self.Port,
		KnownPeers:  known,
		Buckets:     sizes,
		KeySpace:    rt.KeySpace(),
		Kay:         rt.Kay(),
		LookupOrder: s.Node.Policy.String(),
	})
}

func (s *HTTPServer) handleRoutingTable(w http.ResponseWriter, r *http.Request) {
	info := s.Node.GetRoutingTableInfo()
	if r.URL.Query().Get("format") != "msgpack" {
		render.JSON(w, r, info)
		return
	}

	table := wireTable{
		NodeID:   info.NodeID[:],
		KeySpace: info.KeySpace,
		Kay:      info.Kay,
		Buckets:  make([][]wireContact, len(info.Buckets)),
	}
	for i, bucket := range info.Buckets {
		table.Buckets[i] = make([]wireContact, len(bucket))
		for j, c := range bucket {
			id := c.ID
			table.Buckets[i][j] = wireContact{ID: id[:], IP: c.IP.String(), Port: c.Port}
		}
	}

	body, err := msgpack.Marshal(&table)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Write(body)
}

// handlePeer records a peer the caller has observed
func (s *HTTPServer) handlePeer(w http.ResponseWriter, r *http.Request) {
	var req PeerRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.Wrap(err, "invalid JSON"))
		return
	}

	id, err := dht.ParseNodeID(req.ID)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	ip, err := netip.ParseAddr(req.IP)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, errors.Wrap(err, "invalid ip"))
		return
	}
	if req.Port == 0 {
		s.fail(w, r, http.StatusBadRequest, errors.New("port is required"))
		return
	}

	contact := dht.NewContact(id, ip, req.Port)
	result, err := s.Node.ObservePeer(contact)
	switch {
	case errors.Is(err, dht.ErrSelfInsertion):
		s.fail(w, r, http.StatusConflict, err)
		return
	case err != nil:
		s.logger.Error("peer insert failed", zap.Stringer("peer", contact), zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	resp := PeerResponse{Result: result, Buckets: s.Node.RoutingTable.BucketCount()}
	if result == dht.Rejected {
		resp.Message = "bucket full"
	}
	render.JSON(w, r, resp)
}

// handleLookup answers from the local routing table only
func (s *HTTPServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	key, err := dht.ParseNodeID(chi.URLParam(r, "key"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	policy := s.Node.Policy
	if p := r.URL.Query().Get("policy"); p != "" {
		if policy, err = dht.ParseLookupPolicy(p); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}

	var contacts []dht.Contact
	if policy == dht.PolicyBucketOrder {
		contacts = s.Node.RoutingTable.Lookup(key)
	} else {
		contacts = s.Node.RoutingTable.Closest(key, s.Node.RoutingTable.Kay())
	}

	render.JSON(w, r, LookupResponse{Key: key, Policy: policy.String(), Contacts: contacts})
}
