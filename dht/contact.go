package dht

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

// Contact describes a peer. It is a value: two contacts are equal when id,
// address and port all match.
type Contact struct {
	ID   NodeID     `json:"id"`
	IP   netip.Addr `json:"ip"`
	Port uint16     `json:"port"`
}

func NewContact(id NodeID, ip netip.Addr, port uint16) Contact {
	return Contact{ID: id, IP: ip, Port: port}
}

// ParseContact reads the "hexid@ip:port" form used by -seed.
func ParseContact(s string) (Contact, error) {
	idPart, addrPart, ok := strings.Cut(s, "@")
	if !ok {
		return Contact{}, errors.Errorf("contact %q: expected id@ip:port", s)
	}
	id, err := ParseNodeID(idPart)
	if err != nil {
		return Contact{}, err
	}
	addrPort, err := netip.ParseAddrPort(addrPart)
	if err != nil {
		return Contact{}, errors.Wrapf(err, "contact %q", s)
	}
	return Contact{ID: id, IP: addrPort.Addr(), Port: addrPort.Port()}, nil
}

func (c Contact) Address() netip.AddrPort {
	return netip.AddrPortFrom(c.IP, c.Port)
}

func (c Contact) String() string {
	return fmt.Sprintf("%s@%s", c.ID, c.Address())
}
