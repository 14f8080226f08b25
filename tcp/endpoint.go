package tcp

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Endpoint is an immutable (address, port) pair.
type Endpoint struct {
	ap netip.AddrPort
}

// NewEndpoint builds an Endpoint from an address and a port.
func NewEndpoint(addr netip.Addr, port uint16) Endpoint {
	return Endpoint{ap: netip.AddrPortFrom(addr.Unmap(), port)}
}

// ParseEndpoint parses "host:port" where host is an IP literal. An empty
// host (":8080") means the IPv4 wildcard address.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: %w", s, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: invalid port: %w", s, err)
	}

	addr := netip.IPv4Unspecified()
	if host != "" {
		addr, err = netip.ParseAddr(host)
		if err != nil {
			return Endpoint{}, fmt.Errorf("parse endpoint %q: %w", s, err)
		}
	}
	return NewEndpoint(addr, uint16(port)), nil
}

// MustParseEndpoint is like ParseEndpoint but panics on error.
func MustParseEndpoint(s string) Endpoint {
	ep, err := ParseEndpoint(s)
	if err != nil {
		panic(err)
	}
	return ep
}

// EndpointFromAddr converts an accepted peer or listener address.
// Non-TCP addresses yield the zero Endpoint.
func EndpointFromAddr(a net.Addr) Endpoint {
	switch v := a.(type) {
	case *net.TCPAddr:
		ap := v.AddrPort()
		return NewEndpoint(ap.Addr(), ap.Port())
	default:
		if a == nil {
			return Endpoint{}
		}
		ap, err := netip.ParseAddrPort(a.String())
		if err != nil {
			return Endpoint{}
		}
		return NewEndpoint(ap.Addr(), ap.Port())
	}
}

// Addr returns the IP address.
func (e Endpoint) Addr() netip.Addr { return e.ap.Addr() }

// Port returns the TCP port.
func (e Endpoint) Port() uint16 { return e.ap.Port() }

// AddrPort returns the netip representation.
func (e Endpoint) AddrPort() netip.AddrPort { return e.ap }

// IsValid reports whether the endpoint carries an address.
func (e Endpoint) IsValid() bool { return e.ap.IsValid() }

// Network returns the address-family specific network name for net.Listen.
func (e Endpoint) Network() string {
	if e.ap.Addr().Is6() {
		return "tcp6"
	}
	return "tcp4"
}

func (e Endpoint) String() string {
	if !e.ap.IsValid() {
		return "<invalid>"
	}
	return e.ap.String()
}
