package plan

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// PeerID is the unique identifier of a peer.
type PeerID NetAddr

func (p PeerID) String() string {
	return NetAddr(p).String()
}

func (p PeerID) WithName(name string) Addr {
	return NetAddr(p).WithName(name)
}

func ParsePeerID(val string) (*PeerID, error) {
	host, p, err := net.SplitHostPort(val)
	if err != nil {
		return nil, err
	}
	ipv4, err := ParseIPv4(host)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, err
	}
	if int(uint16(port)) != port {
		return nil, errors.Wrap(errInvalidPort, p)
	}
	return &PeerID{
		IPv4: ipv4,
		Port: uint16(port),
	}, nil
}
