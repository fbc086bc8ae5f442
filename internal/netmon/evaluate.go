package netmon

import (
	"net"
)

// linkState is a platform-neutral view of one interface.
type linkState struct {
	Index        int
	Name         string
	Kind         LinkKind
	Up           bool // administratively up
	Running      bool // carrier present / operationally up
	PointToPoint bool
	Addrs        []*net.IPNet
}

// routeState is a platform-neutral view of one routing table entry. A nil
// Dst is a default route.
type routeState struct {
	LinkIndex int
	Dst       *net.IPNet
	Gateway   net.IP
	Priority  int
}

func (r routeState) isDefault() bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0
}

func (r routeState) prefixLen() int {
	if r.Dst == nil {
		return 0
	}
	ones, _ := r.Dst.Mask.Size()
	return ones
}

func (r routeState) matches(target net.IP) bool {
	if target == nil {
		return r.isDefault()
	}
	if r.Dst == nil {
		return true
	}
	return r.Dst.Contains(target)
}

// evaluate derives raw flags for reaching target (nil means "the network at
// large", i.e. the default route) from the current links and routes.
func evaluate(target net.IP, links []linkState, routes []routeState) Flags {
	byIndex := make(map[int]linkState, len(links))
	for _, l := range links {
		byIndex[l.Index] = l
	}

	if target != nil {
		for _, l := range links {
			if !l.Up {
				continue
			}
			for _, a := range l.Addrs {
				if a.IP.Equal(target) {
					return FlagReachable | FlagIsLocalAddress | FlagIsDirect
				}
			}
		}
	}

	var (
		best  routeState
		found bool
	)
	for _, r := range routes {
		l, ok := byIndex[r.LinkIndex]
		if !ok || !l.Up || l.Kind == KindLoopback {
			continue
		}
		if !r.matches(target) {
			continue
		}
		if !found ||
			r.prefixLen() > best.prefixLen() ||
			(r.prefixLen() == best.prefixLen() && r.Priority < best.Priority) {
			best = r
			found = true
		}
	}
	if !found {
		return 0
	}

	link := byIndex[best.LinkIndex]

	var flags Flags
	if link.Kind == KindCellular {
		flags |= FlagCellular
	} else {
		flags |= FlagLocalArea
	}

	if !link.Running {
		return flags
	}

	flags |= FlagReachable
	if !hasUsableAddr(link, target) {
		flags |= FlagConnectionRequired
	}
	if link.PointToPoint {
		flags |= FlagTransientConnection
	}
	if target != nil && !best.isDefault() && best.Gateway == nil {
		flags |= FlagIsDirect
	}
	return flags
}

// hasUsableAddr reports whether link carries an address that can source
// traffic towards target (any family when target is nil).
func hasUsableAddr(link linkState, target net.IP) bool {
	wantV4 := target != nil && target.To4() != nil
	for _, a := range link.Addrs {
		if a == nil || !a.IP.IsGlobalUnicast() {
			continue
		}
		if target == nil || (a.IP.To4() != nil) == wantV4 {
			return true
		}
	}
	return false
}
