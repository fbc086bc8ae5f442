package reachability

import "sync"

var (
	defaultOnce    sync.Once
	defaultMonitor *Monitor
	defaultErr     error
)

// Default returns the process-wide monitor of the default route, creating it
// on first use. A registration failure is returned on every call together
// with the same degraded monitor. The default monitor is never closed.
func Default() (*Monitor, error) {
	defaultOnce.Do(func() {
		defaultMonitor, defaultErr = New()
	})
	return defaultMonitor, defaultErr
}
