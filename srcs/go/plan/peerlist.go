package plan

import (
	"strings"
)

type PeerList []PeerID

func (pl PeerList) String() string {
	var parts []string
	for _, p := range pl {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ",")
}

func (pl PeerList) Rank(ps PeerID) (int, bool) {
	for i, p := range pl {
		if p == ps {
			return i, true
		}
	}
	return -1, false
}

func (pl PeerList) Eq(ql PeerList) bool {
	if len(pl) != len(ql) {
		return false
	}
	for i, p := range pl {
		if p != ql[i] {
			return false
		}
	}
	return true
}

// Select returns the peers at the given ranks, in that order.
func (pl PeerList) Select(ranks []int) PeerList {
	var ql PeerList
	for _, r := range ranks {
		ql = append(ql, pl[r])
	}
	return ql
}

func ParsePeerList(val string) (PeerList, error) {
	var pl PeerList
	for _, p := range strings.Split(val, ",") {
		id, err := ParsePeerID(p)
		if err != nil {
			return nil, err
		}
		pl = append(pl, *id)
	}
	return pl, nil
}
