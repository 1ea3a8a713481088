package sbus

import "time"

// DiscoverNodesTransfer broadcasts a ReadStationNumber request; unicast
// replies are picked up by Node's datagram dispatch (not by this
// transfer — a broadcast Request skips Process, spec.md §4.2) and turn
// into auto-declared Servers. The Node resubmits a fresh
// DiscoverNodesTransfer every discoverInterval while network scanning is
// enabled (spec.md §4.6).
type DiscoverNodesTransfer struct {
	inner *FromRequestTransfer
}

const discoverInterval = 60 * time.Second

func NewDiscoverNodesTransfer(broadcastAddr string) *DiscoverNodesTransfer {
	req := NewReadStationNumberRequest(nil, true)
	return &DiscoverNodesTransfer{inner: NewFromRequestTransfer(req)}
}

func (t *DiscoverNodesTransfer) Step(link *Link) (bool, bool) {
	return t.inner.Step(link)
}
