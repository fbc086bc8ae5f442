package reachability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmdmdm-nz/reachd/internal/netmon"
)

const (
	localArea = netmon.FlagReachable | netmon.FlagLocalArea
	cellular  = netmon.FlagReachable | netmon.FlagCellular
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		flags netmon.Flags
		want  Status
	}{
		{"nothing", 0, NotReachable},
		{"link kind without reachability", netmon.FlagLocalArea | netmon.FlagCellular, NotReachable},
		{"local area", localArea, ReachableViaLocalNetwork},
		{"cellular", cellular, ReachableViaCellular},
		{"local area outranks cellular", localArea | netmon.FlagCellular, ReachableViaLocalNetwork},
		{"intervention required on local area", localArea | netmon.FlagInterventionRequired, NotReachable},
		{"intervention required on cellular", cellular | netmon.FlagInterventionRequired, NotReachable},
		{"connection required", localArea | netmon.FlagConnectionRequired, NotReachable},
		{"connection on demand", cellular | netmon.FlagConnectionRequired | netmon.FlagConnectionOnDemand, ReachableViaCellular},
		{"connection on traffic", localArea | netmon.FlagConnectionRequired | netmon.FlagConnectionOnTraffic, ReachableViaLocalNetwork},
		{"on demand but intervention required", cellular | netmon.FlagConnectionRequired | netmon.FlagConnectionOnDemand | netmon.FlagInterventionRequired, NotReachable},
		{"reachable over unknown link", netmon.FlagReachable, ReachableViaLocalNetwork},
		{"local address", netmon.FlagReachable | netmon.FlagIsLocalAddress | netmon.FlagIsDirect, ReachableViaLocalNetwork},
		{"transient cellular", cellular | netmon.FlagTransientConnection, ReachableViaCellular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.flags))
		})
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	const all = netmon.FlagLocalArea<<1 - 1

	for f := netmon.Flags(0); f <= all; f++ {
		got := classify(f)
		assert.Contains(t, []Status{NotReachable, ReachableViaCellular, ReachableViaLocalNetwork}, got)
		assert.Equal(t, got, classify(f))

		// Whenever both link kinds are present the local-area one wins.
		if f.Has(netmon.FlagLocalArea|netmon.FlagCellular) && got != NotReachable {
			assert.Equal(t, ReachableViaLocalNetwork, got, "flags %s", f)
		}
		if f.Has(netmon.FlagInterventionRequired) {
			assert.Equal(t, NotReachable, got, "flags %s", f)
		}
	}
}
