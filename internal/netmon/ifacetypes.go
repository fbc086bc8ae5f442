package netmon

import (
	"fmt"

	"howett.net/plist"
)

// systemInterfacesPlist is where macOS records the hardware type of every
// configured network interface.
const systemInterfacesPlist = "/Library/Preferences/SystemConfiguration/NetworkInterfaces.plist"

type interfacesPlist struct {
	Interfaces []struct {
		BSDName string `plist:"BSD Name"`
		Type    string `plist:"SCNetworkInterfaceType"`
	} `plist:"Interfaces"`
}

// parseInterfaceKinds maps BSD interface names to link kinds using the
// SCNetworkInterfaceType recorded by SystemConfiguration. Types that say
// nothing about the link class are left out.
func parseInterfaceKinds(data []byte) (map[string]LinkKind, error) {
	var doc interfacesPlist
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode interfaces plist: %w", err)
	}

	kinds := make(map[string]LinkKind, len(doc.Interfaces))
	for _, iface := range doc.Interfaces {
		if iface.BSDName == "" {
			continue
		}
		switch iface.Type {
		case "IEEE80211", "Ethernet", "Bridge", "Thunderbolt", "FireWire", "Bond", "VLAN":
			kinds[iface.BSDName] = KindLocalArea
		case "WWAN", "Modem", "PPP":
			kinds[iface.BSDName] = KindCellular
		}
	}
	return kinds, nil
}
