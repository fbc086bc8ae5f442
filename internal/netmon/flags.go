package netmon

import "strings"

// Flags is the raw connectivity state reported by a Watcher. It only has
// meaning to the reachability classifier.
type Flags uint32

const (
	FlagReachable Flags = 1 << iota
	FlagTransientConnection
	FlagConnectionRequired
	FlagConnectionOnTraffic
	FlagInterventionRequired
	FlagConnectionOnDemand
	FlagIsLocalAddress
	FlagIsDirect
	FlagCellular
	FlagLocalArea
)

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

var flagLetters = []struct {
	flag   Flags
	letter byte
}{
	{FlagCellular, 'W'},
	{FlagLocalArea, 'L'},
	{FlagReachable, 'R'},
	{FlagTransientConnection, 't'},
	{FlagConnectionRequired, 'c'},
	{FlagConnectionOnTraffic, 'C'},
	{FlagInterventionRequired, 'i'},
	{FlagConnectionOnDemand, 'D'},
	{FlagIsLocalAddress, 'l'},
	{FlagIsDirect, 'd'},
}

// String renders one letter per flag, '-' where unset, e.g. "-LR-------".
func (f Flags) String() string {
	var b strings.Builder
	b.Grow(len(flagLetters))
	for _, fl := range flagLetters {
		if f&fl.flag != 0 {
			b.WriteByte(fl.letter)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
