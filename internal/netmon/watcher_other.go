//go:build !linux && !darwin

package netmon

type unsupportedWatcher struct{}

// NewWatcher returns a watcher whose registration always fails on platforms
// without a supported notification facility.
func NewWatcher(cfg WatcherConfig) Watcher {
	return unsupportedWatcher{}
}

func (unsupportedWatcher) Register(func(Flags)) error { return ErrNotSupported }

func (unsupportedWatcher) Deregister() error { return nil }
