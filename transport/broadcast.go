package transport

import (
	"fmt"
	"net"
)

// BroadcastAddress returns the subnet broadcast address to use for
// DiscoverNodes when the caller hasn't configured one explicitly: the
// limited broadcast address, unless a more specific subnet broadcast can be
// derived from a configured local IPv4 address.
func BroadcastAddress(localAddr string) string {
	if localAddr == "" {
		return "255.255.255.255"
	}

	ip := net.ParseIP(localAddr)
	if ip == nil {
		return "255.255.255.255"
	}
	ip = ip.To4()
	if ip == nil {
		return "255.255.255.255"
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "255.255.255.255"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if !ipNet.Contains(ip) {
				continue
			}
			return subnetBroadcast(ipNet)
		}
	}
	return "255.255.255.255"
}

func subnetBroadcast(n *net.IPNet) string {
	ip4 := n.IP.To4()
	if ip4 == nil {
		return "255.255.255.255"
	}
	bcast := make(net.IP, len(ip4))
	for i := range ip4 {
		bcast[i] = ip4[i] | ^n.Mask[i]
	}
	return bcast.String()
}

// EnumerateBroadcastCapableInterfaces lists the up, non-loopback,
// broadcast-capable IPv4 interfaces a DiscoverNodes transfer can send on,
// the way netboot's writeNetbootMessageToPort walks interfaces to find one
// to broadcast on.
func EnumerateBroadcastCapableInterfaces() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("transport: enumerate interfaces: %w", err)
	}
	var out []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		out = append(out, iface)
	}
	return out, nil
}
