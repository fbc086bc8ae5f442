package netmon

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultResolveTimeout = 5 * time.Second

type lookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// target is the host whose reachability is evaluated. An empty host means
// the default route.
type target struct {
	host    string
	literal net.IP
	timeout time.Duration
	lookup  lookupFunc

	mu   sync.Mutex
	last net.IP
}

func newTarget(host string, timeout time.Duration) *target {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &target{
		host:    host,
		literal: net.ParseIP(host),
		timeout: timeout,
		lookup:  net.DefaultResolver.LookupIPAddr,
	}
}

// isName reports whether evaluating the target needs a name lookup.
func (t *target) isName() bool {
	return t.host != "" && t.literal == nil
}

// resolve returns the address to evaluate. It returns false when a host name
// has never resolved; a failed lookup falls back to the last good address.
func (t *target) resolve(ctx context.Context) (net.IP, bool) {
	if !t.isName() {
		return t.literal, true
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	addrs, err := t.lookup(ctx, t.host)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil || len(addrs) == 0 {
		log.WithField("host", t.host).WithError(err).Debug("Failed to resolve target host")
		return t.last, t.last != nil
	}

	ip := addrs[0].IP
	for _, a := range addrs {
		if a.IP.To4() != nil {
			ip = a.IP
			break
		}
	}
	t.last = ip
	return ip, true
}
