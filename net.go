package mpcnet

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hashicorp/go-metrics"
)

// Net is one party's view of the mesh. It owns the topology, the peer
// connections and the traffic counters, and serializes every public
// operation behind a single lock, so concurrent protocol-layer call sites
// within one process cannot interleave on the sockets.
//
// The zero lifecycle is: `Create` (empty) → `Init` (topology loaded, mesh
// connected) → collectives → `Uninit` (connections cleared, topology and
// stats retained) → optionally `Init` again.
type Net struct {
	cfg    config
	logger *slog.Logger
	msink  metrics.MetricSink

	lk        sync.Mutex
	dir       *Directory
	connected bool
	stats     Stats
}

// Create builds an unconnected Net and customises it with `Option`s.
func Create(opts ...Option) (*Net, error) {
	n := &Net{}
	n.cfg.retryInterval = defaultRetryInterval
	n.cfg.connectTimeout = defaultConnectTimeout

	for _, opt := range opts {
		if err := opt(&n.cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	if n.cfg.logHandler != nil {
		n.logger = slog.New(n.cfg.logHandler)
	} else {
		n.logger = slog.Default()
	}

	if n.cfg.msink != nil {
		n.msink = n.cfg.msink
	} else {
		n.msink = metrics.Default()
	}

	return n, nil
}

// Init loads the peer file at path as the party with own id self, then
// establishes the full mesh. It fails without touching the network when
// the roster is unreadable, an address does not parse, or self is out of
// range; it fails after a bounded dial-retry window when a peer never
// comes up.
func (n *Net) Init(path string, self int) error {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.connected {
		return ErrAlreadyConnected
	}

	dir, err := LoadDirectory(path, self)
	if err != nil {
		return err
	}
	n.dir = dir
	if err := n.connectAll(); err != nil {
		n.teardownLocked()
		return err
	}
	return nil
}

// InitDirectory is Init for an already-parsed topology, e.g. one expanded
// from a YAML `Config`. The Directory must not be shared between parties:
// each Net takes ownership of the connection slots inside.
func (n *Net) InitDirectory(dir *Directory) error {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.connected {
		return ErrAlreadyConnected
	}

	if dir == nil || dir.Self < 0 || dir.Self >= len(dir.Peers) {
		return fmt.Errorf("%w: malformed topology", ErrOwnID)
	}
	n.dir = dir
	if err := n.connectAll(); err != nil {
		n.teardownLocked()
		return err
	}
	return nil
}

// Uninit closes and clears every peer connection. The topology and the
// stats survive, and a later Init may rebuild the mesh.
func (n *Net) Uninit() error {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.dir == nil {
		return nil
	}
	n.teardownLocked()
	n.logger.Debug("mesh torn down", LabelParty.L(n.dir.Self))
	return nil
}

// teardownLocked closes and clears every connection slot. Caller must
// hold n.lk.
func (n *Net) teardownLocked() {
	for _, peer := range n.dir.Peers {
		if peer.conn == nil {
			continue
		}
		if err := peer.conn.Close(); err != nil {
			n.logger.Warn("error closing peer connection", LabelPeer.L(peer.ID), "error", err)
		}
		peer.conn = nil
	}
	n.connected = false
}

// AmKing reports whether this party is the king (party id 0).
func (n *Net) AmKing() bool {
	n.lk.Lock()
	defer n.lk.Unlock()
	return n.dir != nil && n.dir.Self == 0
}

// PartyID returns this party's own id, or -1 before Init.
func (n *Net) PartyID() int {
	n.lk.Lock()
	defer n.lk.Unlock()
	if n.dir == nil {
		return -1
	}
	return n.dir.Self
}

// NumParties returns the size of the party group, or 0 before Init.
func (n *Net) NumParties() int {
	n.lk.Lock()
	defer n.lk.Unlock()
	if n.dir == nil {
		return 0
	}
	return len(n.dir.Peers)
}

// Connected reports whether the mesh is currently established.
func (n *Net) Connected() bool {
	n.lk.Lock()
	defer n.lk.Unlock()
	return n.connected
}

// Stats returns a point-in-time copy of the traffic counters.
func (n *Net) Stats() Stats {
	n.lk.Lock()
	defer n.lk.Unlock()
	return n.stats
}

// mLabels builds the label set for metric emission. Callers must hold
// n.lk so the topology cannot change underneath.
func (n *Net) mLabels() []metrics.Label {
	labels := append([]metrics.Label(nil), n.cfg.metricLabels...)
	if n.dir != nil {
		labels = append(labels, LabelParty.M(strconv.Itoa(n.dir.Self)))
	}
	return labels
}
