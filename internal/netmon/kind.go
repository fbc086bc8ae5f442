package netmon

import (
	"strings"
	"sync"
)

type LinkKind int

const (
	KindUnknown LinkKind = iota
	KindLocalArea
	KindCellular
	KindLoopback
)

func (k LinkKind) String() string {
	switch k {
	case KindLocalArea:
		return "local-area"
	case KindCellular:
		return "cellular"
	case KindLoopback:
		return "loopback"
	default:
		return "unknown"
	}
}

// DefaultCellularPrefixes are interface name prefixes used by modem drivers
// (ModemManager/qmi on Linux, pdp_ip on iOS).
var DefaultCellularPrefixes = []string{"wwan", "wwp", "rmnet", "ccmni", "pdp_ip", "ppp"}

// KindTable decides the link kind of an interface by name. Explicit
// per-interface entries win over prefix matching.
type KindTable struct {
	mu        sync.RWMutex
	cellular  []string
	overrides map[string]LinkKind
}

func NewKindTable(extraCellular []string) *KindTable {
	prefixes := make([]string, 0, len(DefaultCellularPrefixes)+len(extraCellular))
	prefixes = append(prefixes, DefaultCellularPrefixes...)
	for _, p := range extraCellular {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &KindTable{
		cellular:  prefixes,
		overrides: make(map[string]LinkKind),
	}
}

// Set pins the kind of a named interface.
func (t *KindTable) Set(name string, kind LinkKind) {
	t.mu.Lock()
	t.overrides[name] = kind
	t.mu.Unlock()
}

func (t *KindTable) KindOf(name string, loopback bool) LinkKind {
	if loopback {
		return KindLoopback
	}

	t.mu.RLock()
	kind, ok := t.overrides[name]
	t.mu.RUnlock()
	if ok {
		return kind
	}

	for _, p := range t.cellular {
		if strings.HasPrefix(name, p) {
			return KindCellular
		}
	}
	return KindLocalArea
}
