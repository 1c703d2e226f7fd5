package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kutluhann/xorroute/api"
	"github.com/kutluhann/xorroute/dht"
)

func contact(id uint64) dht.Contact {
	return dht.NewContact(dht.NodeIDFromUint64(id), netip.MustParseAddr("127.0.0.1"), 5000)
}

var _ = Describe("HTTPServer", func() {
	var (
		node   *dht.Node
		server *httptest.Server
	)

	postPeer := func(id uint64, ip string) *http.Response {
		body, _ := json.Marshal(api.PeerRequest{ID: dht.NodeIDFromUint64(id).String(), IP: ip, Port: 5000})
		resp, err := http.Post(server.URL+"/peers", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v interface{}) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		node, err = dht.NewNode(contact(0), 4, 2, dht.PolicyBucketOrder, nil)
		Expect(err).NotTo(HaveOccurred())
		server = httptest.NewServer(api.NewHTTPServer(node, 0, nil).Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should report health", func() {
		resp, err := http.Get(server.URL + "/health")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var body map[string]string
		decode(resp, &body)
		Expect(body).To(HaveKeyWithValue("status", "healthy"))
	})

	It("should record peers and report the insert outcome", func() {
		var out api.PeerResponse

		decode(postPeer(4, "127.0.0.1"), &out)
		Expect(out.Result).To(Equal(dht.Inserted))

		decode(postPeer(3, "127.0.0.1"), &out)
		Expect(out.Result).To(Equal(dht.Inserted))

		decode(postPeer(2, "127.0.0.1"), &out)
		Expect(out.Result).To(Equal(dht.Split))
		Expect(out.Buckets).To(Equal(3))

		Expect(node.RoutingTable.Population()).To(Equal(3))
	})

	It("should reject malformed peers and the local id", func() {
		resp := postPeer(4, "not-an-ip")
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		resp, err := http.Post(server.URL+"/peers", "application/json", bytes.NewBufferString("{"))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		resp = postPeer(0, "127.0.0.1")
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))

		Expect(node.RoutingTable.Population()).To(Equal(0))
	})

	It("should answer lookups with either policy", func() {
		for _, id := range []uint64{1, 2, 3, 4} {
			postPeer(id, "127.0.0.1").Body.Close()
		}
		key := dht.NodeIDFromUint64(1).String()

		var out api.LookupResponse
		resp, err := http.Get(server.URL + "/lookup/" + key)
		Expect(err).NotTo(HaveOccurred())
		decode(resp, &out)
		Expect(out.Policy).To(Equal("bucket"))
		Expect(out.Contacts).To(Equal([]dht.Contact{contact(1), contact(2)}))

		resp, err = http.Get(server.URL + "/lookup/" + key + "?policy=exact")
		Expect(err).NotTo(HaveOccurred())
		decode(resp, &out)
		Expect(out.Policy).To(Equal("exact"))
		Expect(out.Contacts).To(Equal([]dht.Contact{contact(1), contact(3)}))

		resp, err = http.Get(server.URL + "/lookup/nothex")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should describe the node and its buckets", func() {
		for _, id := range []uint64{4, 3, 2} {
			postPeer(id, "127.0.0.1").Body.Close()
		}

		var status api.StatusResponse
		resp, err := http.Get(server.URL + "/status")
		Expect(err).NotTo(HaveOccurred())
		decode(resp, &status)
		Expect(status.KnownPeers).To(Equal(3))
		Expect(status.Buckets).To(Equal([]int{0, 1, 2}))
		Expect(status.NodeID).To(Equal(dht.NodeIDFromUint64(0).String()))

		var info dht.RoutingTableInfo
		resp, err = http.Get(server.URL + "/routing-table")
		Expect(err).NotTo(HaveOccurred())
		decode(resp, &info)
		Expect(info.Population).To(Equal(3))
		Expect(info.Buckets[2]).To(Equal([]dht.Contact{contact(3), contact(2)}))
	})

	It("should encode the routing table as msgpack on request", func() {
		postPeer(4, "127.0.0.1").Body.Close()

		resp, err := http.Get(server.URL + "/routing-table?format=msgpack")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/msgpack"))

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var table struct {
			KeySpace int `msgpack:"key_space"`
			Buckets  [][]struct {
				IP   string `msgpack:"ip"`
				Port uint16 `msgpack:"port"`
			} `msgpack:"buckets"`
		}
		Expect(msgpack.Unmarshal(raw, &table)).To(Succeed())
		Expect(table.KeySpace).To(Equal(4))
		Expect(table.Buckets).To(HaveLen(1))
		Expect(table.Buckets[0][0].IP).To(Equal("127.0.0.1"))
		Expect(table.Buckets[0][0].Port).To(Equal(uint16(5000)))
	})
})
