//go:build linux

package netmon

import (
	"context"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// Updates arriving within one burst are folded into a single evaluation.
const maxCoalesce = 64

type linuxWatcher struct {
	target *target
	kinds  *KindTable

	mu     sync.Mutex
	done   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Linux-specific watcher using netlink.
func NewWatcher(cfg WatcherConfig) Watcher {
	return &linuxWatcher{
		target: newTarget(cfg.TargetHost, cfg.ResolveTimeout),
		kinds:  NewKindTable(cfg.CellularPrefixes),
	}
}

func (w *linuxWatcher) Register(callback func(Flags)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return ErrAlreadyRegistered
	}

	done := make(chan struct{})
	linkCh := make(chan netlink.LinkUpdate, 16)
	addrCh := make(chan netlink.AddrUpdate, 16)
	routeCh := make(chan netlink.RouteUpdate, 16)

	if err := netlink.LinkSubscribe(linkCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to link updates: %w", err)
	}
	if err := netlink.AddrSubscribe(addrCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to address updates: %w", err)
	}
	if err := netlink.RouteSubscribe(routeCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to route updates: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if !w.target.isName() {
		callback(w.snapshot(ctx))
	}

	w.done = done
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx, done, linkCh, addrCh, routeCh, callback)

	log.WithField("host", w.target.host).Debug("Netlink watcher registered")
	return nil
}

func (w *linuxWatcher) Deregister() error {
	w.mu.Lock()
	done, cancel := w.done, w.cancel
	w.done, w.cancel = nil, nil
	w.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	cancel()
	w.wg.Wait()

	log.WithField("host", w.target.host).Debug("Netlink watcher deregistered")
	return nil
}

func (w *linuxWatcher) run(
	ctx context.Context,
	done chan struct{},
	linkCh chan netlink.LinkUpdate,
	addrCh chan netlink.AddrUpdate,
	routeCh chan netlink.RouteUpdate,
	callback func(Flags),
) {
	defer w.wg.Done()

	if w.target.isName() {
		callback(w.snapshot(ctx))
	}

	for {
		select {
		case <-done:
			return

		case update, ok := <-linkCh:
			if !ok {
				log.Warn("Netlink link subscription closed")
				return
			}
			attrs := update.Link.Attrs()
			log.WithFields(log.Fields{
				"interface": attrs.Name,
				"flags":     attrs.Flags,
				"operState": attrs.OperState,
			}).Trace("Received link update")

		case update, ok := <-addrCh:
			if !ok {
				log.Warn("Netlink address subscription closed")
				return
			}
			log.WithFields(log.Fields{
				"ifIndex": update.LinkIndex,
				"address": update.LinkAddress.String(),
				"new":     update.NewAddr,
			}).Trace("Received address update")

		case update, ok := <-routeCh:
			if !ok {
				log.Warn("Netlink route subscription closed")
				return
			}
			log.WithFields(log.Fields{
				"ifIndex": update.LinkIndex,
				"type":    update.Type,
			}).Trace("Received route update")
		}

		drainUpdates(linkCh, addrCh, routeCh)

		select {
		case <-done:
			return
		default:
		}
		callback(w.snapshot(ctx))
	}
}

func drainUpdates(linkCh chan netlink.LinkUpdate, addrCh chan netlink.AddrUpdate, routeCh chan netlink.RouteUpdate) {
	for i := 0; i < maxCoalesce; i++ {
		select {
		case _, ok := <-linkCh:
			if !ok {
				linkCh = nil
			}
		case _, ok := <-addrCh:
			if !ok {
				addrCh = nil
			}
		case _, ok := <-routeCh:
			if !ok {
				routeCh = nil
			}
		default:
			return
		}
	}
}

// snapshot reads links, addresses and routes from the kernel and evaluates
// them for the target.
func (w *linuxWatcher) snapshot(ctx context.Context) Flags {
	dst, ok := w.target.resolve(ctx)
	if !ok {
		return 0
	}

	links, err := netlink.LinkList()
	if err != nil {
		log.WithError(err).Error("Error listing network links")
		return 0
	}

	states := make([]linkState, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		st := linkState{
			Index:        attrs.Index,
			Name:         attrs.Name,
			Kind:         w.kinds.KindOf(attrs.Name, attrs.Flags&net.FlagLoopback != 0),
			Up:           attrs.Flags&net.FlagUp != 0,
			Running:      attrs.Flags&net.FlagRunning != 0 && (attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown),
			PointToPoint: attrs.Flags&net.FlagPointToPoint != 0,
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			log.WithError(err).WithField("interface", attrs.Name).Trace("Failed to list addresses")
		}
		for _, addr := range addrs {
			if addr.IPNet != nil {
				st.Addrs = append(st.Addrs, addr.IPNet)
			}
		}
		states = append(states, st)
	}

	routes, err := netlink.RouteList(nil, netlink.FAMILY_ALL)
	if err != nil {
		log.WithError(err).Error("Error listing routes")
		return 0
	}

	rs := make([]routeState, 0, len(routes))
	for _, r := range routes {
		if r.LinkIndex == 0 && len(r.MultiPath) > 0 {
			for _, hop := range r.MultiPath {
				rs = append(rs, routeState{LinkIndex: hop.LinkIndex, Dst: r.Dst, Gateway: hop.Gw, Priority: r.Priority})
			}
			continue
		}
		rs = append(rs, routeState{LinkIndex: r.LinkIndex, Dst: r.Dst, Gateway: r.Gw, Priority: r.Priority})
	}

	flags := evaluate(dst, states, rs)
	log.WithFields(log.Fields{
		"host":  w.target.host,
		"flags": flags.String(),
	}).Trace("Evaluated connectivity")
	return flags
}
