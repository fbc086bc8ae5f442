//go:build darwin

package netmon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// Poll timeout for the route socket; bounds how long Deregister waits.
const pollTimeoutMillis = 250

type darwinWatcher struct {
	target *target
	kinds  *KindTable

	mu     sync.Mutex
	fd     int
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a macOS-specific watcher using AF_ROUTE sockets.
func NewWatcher(cfg WatcherConfig) Watcher {
	return &darwinWatcher{
		target: newTarget(cfg.TargetHost, cfg.ResolveTimeout),
		kinds:  NewKindTable(cfg.CellularPrefixes),
		fd:     -1,
	}
}

func (w *darwinWatcher) Register(callback func(Flags)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return ErrAlreadyRegistered
	}

	w.loadInterfaceKinds()

	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return fmt.Errorf("open route socket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !w.target.isName() {
		callback(w.snapshot(ctx))
	}

	done := make(chan struct{})
	w.fd = fd
	w.done = done
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx, fd, done, callback)

	log.WithField("host", w.target.host).Debug("Darwin watcher registered")
	return nil
}

func (w *darwinWatcher) Deregister() error {
	w.mu.Lock()
	fd, done, cancel := w.fd, w.done, w.cancel
	w.fd, w.done, w.cancel = -1, nil, nil
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	cancel()
	w.wg.Wait()

	log.WithField("host", w.target.host).Debug("Darwin watcher deregistered")
	return unix.Close(fd)
}

func (w *darwinWatcher) run(ctx context.Context, fd int, done chan struct{}, callback func(Flags)) {
	defer w.wg.Done()

	if w.target.isName() {
		callback(w.snapshot(ctx))
	}

	buf := make([]byte, os.Getpagesize())
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := unix.Poll(pfd, pollTimeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			log.WithError(err).Warn("Error polling route socket")
			return
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			log.WithError(err).Warn("Error reading from route socket")
			continue
		}

		msgs, err := route.ParseRIB(route.RIBTypeRoute, buf[:n])
		if err != nil {
			log.WithError(err).Trace("Failed to parse routing message")
			continue
		}
		if !relevantMessages(msgs) {
			continue
		}

		select {
		case <-done:
			return
		default:
		}
		callback(w.snapshot(ctx))
	}
}

func relevantMessages(msgs []route.Message) bool {
	for _, m := range msgs {
		switch m := m.(type) {
		case *route.RouteMessage:
			if m.Type == unix.RTM_GET || m.Type == unix.RTM_MISS {
				continue
			}
			return true
		case *route.InterfaceMessage, *route.InterfaceAddrMessage:
			return true
		}
	}
	return false
}

func (w *darwinWatcher) loadInterfaceKinds() {
	data, err := os.ReadFile(systemInterfacesPlist)
	if err != nil {
		log.WithError(err).Debug("Interface types unavailable, using name prefixes")
		return
	}
	kinds, err := parseInterfaceKinds(data)
	if err != nil {
		log.WithError(err).Warn("Failed to parse interface types")
		return
	}
	for name, kind := range kinds {
		w.kinds.Set(name, kind)
	}
}

func (w *darwinWatcher) snapshot(ctx context.Context) Flags {
	dst, ok := w.target.resolve(ctx)
	if !ok {
		return 0
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		log.WithError(err).Error("Error getting network interfaces")
		return 0
	}

	links := make([]linkState, 0, len(ifaces))
	for _, iface := range ifaces {
		st := linkState{
			Index:        iface.Index,
			Name:         iface.Name,
			Kind:         w.kinds.KindOf(iface.Name, iface.Flags&net.FlagLoopback != 0),
			Up:           iface.Flags&net.FlagUp != 0,
			Running:      iface.Flags&net.FlagRunning != 0,
			PointToPoint: iface.Flags&net.FlagPointToPoint != 0,
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.WithError(err).WithField("interface", iface.Name).Trace("Failed to list addresses")
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				st.Addrs = append(st.Addrs, ipNet)
			}
		}
		links = append(links, st)
	}

	routes, err := fetchRoutes()
	if err != nil {
		log.WithError(err).Error("Error reading routing table")
		return 0
	}

	flags := evaluate(dst, links, routes)
	log.WithFields(log.Fields{
		"host":  w.target.host,
		"flags": flags.String(),
	}).Trace("Evaluated connectivity")
	return flags
}

func fetchRoutes() ([]routeState, error) {
	rib, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeRoute, 0)
	if err != nil {
		return nil, err
	}
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		return nil, err
	}

	routes := make([]routeState, 0, len(msgs))
	for i, m := range msgs {
		rm, ok := m.(*route.RouteMessage)
		if !ok || rm.Flags&unix.RTF_UP == 0 || rm.Flags&unix.RTF_IFSCOPE != 0 {
			continue
		}
		if len(rm.Addrs) <= unix.RTAX_NETMASK {
			continue
		}

		dstIP := addrIP(rm.Addrs[unix.RTAX_DST])
		if dstIP == nil {
			continue
		}

		r := routeState{LinkIndex: rm.Index, Priority: i}
		if rm.Flags&unix.RTF_GATEWAY != 0 {
			r.Gateway = addrIP(rm.Addrs[unix.RTAX_GATEWAY])
		}

		bits := 8 * len(dstIP)
		switch mask := addrIP(rm.Addrs[unix.RTAX_NETMASK]); {
		case rm.Flags&unix.RTF_HOST != 0:
			r.Dst = &net.IPNet{IP: dstIP, Mask: net.CIDRMask(bits, bits)}
		case mask != nil && len(mask) == len(dstIP):
			r.Dst = &net.IPNet{IP: dstIP, Mask: net.IPMask(mask)}
		case dstIP.IsUnspecified():
			r.Dst = &net.IPNet{IP: dstIP, Mask: net.CIDRMask(0, bits)}
		default:
			continue
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func addrIP(a route.Addr) net.IP {
	switch a := a.(type) {
	case *route.Inet4Addr:
		return net.IP(append([]byte(nil), a.IP[:]...))
	case *route.Inet6Addr:
		return net.IP(append([]byte(nil), a.IP[:]...))
	default:
		return nil
	}
}
