package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errInvalidHostSpec = errors.New("invalid HostSpec")

// HostSpec is ip[:slots[:public addr]].
type HostSpec struct {
	Hostname   uint32
	Slots      int
	PublicAddr string
}

func (h HostSpec) String() string {
	return fmt.Sprintf("%s:%d:%s", FormatIPv4(h.Hostname), h.Slots, h.PublicAddr)
}

func parseHostSpec(spec string) (*HostSpec, error) {
	parts := strings.Split(spec, ":")
	ipv4, err := ParseIPv4(parts[0])
	if err != nil {
		return nil, err
	}
	switch len(parts) {
	case 1:
		return &HostSpec{Hostname: ipv4, Slots: 1, PublicAddr: parts[0]}, nil
	case 2, 3:
		slots, err := strconv.Atoi(parts[1])
		if err != nil || slots <= 0 {
			return nil, errors.Wrap(errInvalidHostSpec, spec)
		}
		h := &HostSpec{Hostname: ipv4, Slots: slots, PublicAddr: parts[0]}
		if len(parts) == 3 {
			h.PublicAddr = parts[2]
		}
		return h, nil
	}
	return nil, errors.Wrap(errInvalidHostSpec, spec)
}

type HostList []HostSpec

func (hl HostList) String() string {
	var ss []string
	for _, h := range hl {
		ss = append(ss, h.String())
	}
	return strings.Join(ss, ",")
}

func ParseHostList(hostlist string) (HostList, error) {
	var hostSpecs HostList
	for _, h := range strings.Split(hostlist, ",") {
		spec, err := parseHostSpec(h)
		if err != nil {
			return nil, err
		}
		hostSpecs = append(hostSpecs, *spec)
	}
	return hostSpecs, nil
}

func (hl HostList) Cap() int {
	var cap int
	for _, h := range hl {
		cap += h.Slots
	}
	return cap
}

type PortRange struct {
	Begin uint16
	End   uint16
}

var DefaultPortRange = PortRange{
	Begin: 10000,
	End:   11000,
}

var errInvalidPortRange = errors.New("invalid port range")

func ParsePortRange(val string) (*PortRange, error) {
	var begin, end uint16
	if _, err := fmt.Sscanf(val, "%d-%d", &begin, &end); err != nil {
		return nil, err
	}
	if end < begin {
		return nil, errors.Wrap(errInvalidPortRange, val)
	}
	return &PortRange{Begin: begin, End: end}, nil
}

func (pr PortRange) Cap() int {
	return int(pr.End) - int(pr.Begin) + 1
}

func (pr PortRange) String() string {
	return fmt.Sprintf("%d-%d", pr.Begin, pr.End)
}

var errNoEnoughCapacity = errors.New("no enough capacity")

// GenPeerList places np peers on the hosts in order, filling each host's slots
// with consecutive ports from pr.
func (hl HostList) GenPeerList(np int, pr PortRange) (PeerList, error) {
	if hl.Cap() < np {
		return nil, errors.Wrapf(errNoEnoughCapacity, "%d slots for %d peers", hl.Cap(), np)
	}
	var pl PeerList
	for _, host := range hl {
		if pr.Cap() < host.Slots {
			return nil, errors.Wrapf(errNoEnoughCapacity, "port range %s for %d slots", pr, host.Slots)
		}
		for j := 0; j < host.Slots && len(pl) < np; j++ {
			pl = append(pl, PeerID{IPv4: host.Hostname, Port: pr.Begin + uint16(j)})
		}
	}
	return pl, nil
}
