package reachability

import "fmt"

// Status is the coarse reachability classification of the host.
type Status int

const (
	NotReachable Status = iota
	ReachableViaCellular
	ReachableViaLocalNetwork
)

func (s Status) String() string {
	switch s {
	case NotReachable:
		return "not_reachable"
	case ReachableViaCellular:
		return "cellular"
	case ReachableViaLocalNetwork:
		return "local_network"
	default:
		return "unknown"
	}
}

// IsReachable reports whether s represents any usable link.
func (s Status) IsReachable() bool {
	return s == ReachableViaCellular || s == ReachableViaLocalNetwork
}

func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case NotReachable, ReachableViaCellular, ReachableViaLocalNetwork:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid reachability status %d", int(s))
	}
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_reachable":
		*s = NotReachable
	case "cellular":
		*s = ReachableViaCellular
	case "local_network":
		*s = ReachableViaLocalNetwork
	default:
		return fmt.Errorf("invalid reachability status %q", string(text))
	}
	return nil
}
