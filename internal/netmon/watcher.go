package netmon

import (
	"errors"
	"runtime"
	"time"
)

var (
	ErrNotSupported      = errors.New("connectivity notifications are not supported on " + runtime.GOOS)
	ErrAlreadyRegistered = errors.New("watcher already registered")
)

// Watcher delivers raw connectivity flags from the operating system's
// change notification facility (netlink on Linux, route sockets on macOS).
type Watcher interface {
	// Register engages the notification source and starts delivering flags
	// to callback on a goroutine owned by the watcher. When the current
	// state can be computed without network I/O it is reported before
	// Register returns.
	Register(callback func(Flags)) error

	// Deregister stops delivery. Once it returns callback is not invoked
	// again. Calling it more than once, or without Register, is a no-op.
	Deregister() error
}

type WatcherConfig struct {
	// TargetHost restricts evaluation to the route towards one host; empty
	// means the default route.
	TargetHost string

	// CellularPrefixes adds interface name prefixes treated as cellular.
	CellularPrefixes []string

	// ResolveTimeout bounds each lookup of a named TargetHost.
	ResolveTimeout time.Duration
}
