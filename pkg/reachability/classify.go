package reachability

import "github.com/dmdmdm-nz/reachd/internal/netmon"

// classify maps raw connectivity flags to a Status. Every flags value has
// exactly one classification.
func classify(flags netmon.Flags) Status {
	if !flags.Has(netmon.FlagReachable) {
		return NotReachable
	}

	// A captive portal or a manual connection step makes the link unusable
	// whatever its kind.
	if flags.Has(netmon.FlagInterventionRequired) {
		return NotReachable
	}

	if flags.Has(netmon.FlagConnectionRequired) &&
		!flags.Has(netmon.FlagConnectionOnDemand) &&
		!flags.Has(netmon.FlagConnectionOnTraffic) {
		return NotReachable
	}

	switch {
	case flags.Has(netmon.FlagLocalArea):
		return ReachableViaLocalNetwork
	case flags.Has(netmon.FlagCellular):
		return ReachableViaCellular
	default:
		return ReachableViaLocalNetwork
	}
}
