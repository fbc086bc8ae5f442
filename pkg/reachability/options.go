package reachability

import (
	"time"

	"github.com/dmdmdm-nz/reachd/internal/netmon"
)

type options struct {
	host             string
	onChange         func(isReachable bool)
	registry         *Registry
	topic            string
	cellularPrefixes []string
	resolveTimeout   time.Duration

	watcher netmon.Watcher
}

// Option configures a Monitor.
type Option func(*options)

// WithTargetHost evaluates the route towards host (an IP literal or a name)
// instead of the default route.
func WithTargetHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithOnChange sets a callback invoked on every transition of this monitor.
// It runs on the monitor's dispatch goroutine, never on the watcher's, and
// must not call Close.
func WithOnChange(fn func(isReachable bool)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithRegistry publishes transitions to r instead of DefaultRegistry. A nil
// registry disables publishing.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTopic publishes transitions under topic instead of ChangeTopic.
func WithTopic(topic string) Option {
	return func(o *options) { o.topic = topic }
}

// WithCellularPrefixes treats interfaces whose names start with one of the
// prefixes as cellular links, in addition to the built-in list.
func WithCellularPrefixes(prefixes ...string) Option {
	return func(o *options) { o.cellularPrefixes = append(o.cellularPrefixes, prefixes...) }
}

// WithResolveTimeout bounds each lookup of a named target host.
func WithResolveTimeout(d time.Duration) Option {
	return func(o *options) { o.resolveTimeout = d }
}

func withWatcher(w netmon.Watcher) Option {
	return func(o *options) { o.watcher = w }
}
