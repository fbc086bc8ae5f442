// Package reachability reports whether the host currently has a usable path
// to the network, and over which class of link.
//
// A Monitor registers with the operating system's connectivity change
// notifications (netlink on Linux, route sockets on macOS) and keeps a
// Status that callers can query at any time:
//
//	m, err := reachability.New()
//	if err != nil {
//		log.WithError(err).Warn("reachability monitoring unavailable")
//	}
//	defer m.Close()
//
//	if m.IsReachableViaLocalNetwork() {
//		// ...
//	}
//
// Changes are reported once per transition, both to an optional callback
// given at construction and to the ChangeTopic of a Registry, so any part of
// a process can follow connectivity without holding a Monitor:
//
//	sub := reachability.DefaultRegistry().Subscribe(reachability.ChangeTopic)
//	defer reachability.DefaultRegistry().Unsubscribe(sub)
//	for ev := range sub.C() {
//		fmt.Println(ev.Status)
//	}
package reachability
