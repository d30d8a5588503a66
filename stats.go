package mpcnet

// Stats are the cumulative traffic counters of one party. All four are
// monotonically non-decreasing and only ever mutated by the collective
// operations while the registry lock is held; `Net.Stats` hands out
// point-in-time copies.
//
// Note that only collective payload bytes are accounted: the one-byte
// round-sync tokens exchanged during mesh establishment do not count.
type Stats struct {
	BytesSent     uint64
	BytesRecv     uint64
	KingExchanges uint64
	Broadcasts    uint64
}
