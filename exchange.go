package mpcnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// kingID is the distinguished coordinator of the star exchanges.
const kingID = 0

// Broadcast is the symmetric all-to-all collective: every party supplies
// a payload of the same length m (agreed out-of-band, nothing is framed
// on the wire) and receives a length-N vector where slot i holds party
// i's payload, the caller's own slot included.
//
// One task per remote peer performs the pairwise exchange; a peer with a
// lower id is read from before being written to, a peer with a higher id
// is written to before being read from. For every unordered pair exactly
// one side reads first, so no two parties can block on writes to each
// other, provided all parties call Broadcast in lock-step.
func (n *Net) Broadcast(payload []byte) ([][]byte, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if !n.connected {
		return nil, ErrNotConnected
	}

	self := n.dir.Self
	num := len(n.dir.Peers)
	m := len(payload)

	results := make([][]byte, num)
	var grp errgroup.Group
	for _, peer := range n.dir.Peers {
		peer := peer
		if peer.ID == self {
			results[self] = bytes.Clone(payload)
			continue
		}
		grp.Go(func() error {
			in := make([]byte, m)
			if peer.ID < self {
				if err := readFrom(peer, in); err != nil {
					return err
				}
				if err := writeTo(peer, payload); err != nil {
					return err
				}
			} else {
				if err := writeTo(peer, payload); err != nil {
					return err
				}
				if err := readFrom(peer, in); err != nil {
					return err
				}
			}
			results[peer.ID] = in
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	n.stats.BytesSent += uint64((num - 1) * m)
	n.stats.BytesRecv += uint64((num - 1) * m)
	n.stats.Broadcasts++

	labels := n.mLabels()
	n.msink.IncrCounterWithLabels(MetricExchangeOutBytes, float32((num-1)*m), labels)
	n.msink.IncrCounterWithLabels(MetricExchangeInBytes, float32((num-1)*m), labels)
	n.msink.IncrCounterWithLabels(MetricBroadcastCount, 1.0, labels)
	return results, nil
}

// SendToKing is the aggregation half of the star exchange. The king
// collects one payload of length m from every party, its own included,
// and returns the vector indexed by party id; every other party writes
// its payload to the king and returns a nil vector.
func (n *Net) SendToKing(payload []byte) ([][]byte, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if !n.connected {
		return nil, ErrNotConnected
	}

	self := n.dir.Self
	num := len(n.dir.Peers)
	m := len(payload)

	n.stats.KingExchanges++
	labels := n.mLabels()
	n.msink.IncrCounterWithLabels(MetricKingExchangeCount, 1.0, labels)

	if self != kingID {
		if err := writeTo(n.dir.Peers[kingID], payload); err != nil {
			return nil, err
		}
		n.stats.BytesSent += uint64(m)
		n.msink.IncrCounterWithLabels(MetricExchangeOutBytes, float32(m), labels)
		return nil, nil
	}

	results := make([][]byte, num)
	var grp errgroup.Group
	for _, peer := range n.dir.Peers {
		peer := peer
		if peer.ID == self {
			results[self] = bytes.Clone(payload)
			continue
		}
		grp.Go(func() error {
			in := make([]byte, m)
			if err := readFrom(peer, in); err != nil {
				return err
			}
			results[peer.ID] = in
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	n.stats.BytesRecv += uint64((num - 1) * m)
	n.msink.IncrCounterWithLabels(MetricExchangeInBytes, float32((num-1)*m), labels)
	return results, nil
}

// RecvFromKing is the distribution half of the star exchange. The king
// supplies one payload per party, all of equal length, and each is
// written to its party as an 8-byte little-endian length prefix followed
// by the raw bytes; the king's own entry is returned from memory. Every
// other party passes nil, reads its frame from the king connection and
// returns the payload.
func (n *Net) RecvFromKing(assign [][]byte) ([]byte, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if !n.connected {
		return nil, ErrNotConnected
	}

	self := n.dir.Self
	num := len(n.dir.Peers)

	n.stats.KingExchanges++
	labels := n.mLabels()
	n.msink.IncrCounterWithLabels(MetricKingExchangeCount, 1.0, labels)

	if self != kingID {
		if assign != nil {
			return nil, fmt.Errorf("%w: only the king distributes payloads", ErrPrecondition)
		}
		king := n.dir.Peers[kingID]
		var prefix [8]byte
		if _, err := io.ReadFull(king.conn, prefix[:]); err != nil {
			return nil, fmt.Errorf("%w: reading length prefix from king: %w", ErrPeerIO, err)
		}
		m := binary.LittleEndian.Uint64(prefix[:])
		in := make([]byte, m)
		if err := readFrom(king, in); err != nil {
			return nil, err
		}
		n.stats.BytesRecv += m
		n.msink.IncrCounterWithLabels(MetricExchangeInBytes, float32(m), labels)
		return in, nil
	}

	if assign == nil {
		return nil, fmt.Errorf("%w: the king must supply one payload per party", ErrPrecondition)
	}
	if len(assign) != num {
		return nil, fmt.Errorf("%w: got %d payloads for %d parties", ErrPrecondition, len(assign), num)
	}
	m := len(assign[0])
	for id, p := range assign {
		if len(p) != m {
			return nil, fmt.Errorf("%w: payload %d has length %d, want %d", ErrPrecondition, id, len(p), m)
		}
	}

	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(m))

	var grp errgroup.Group
	for _, peer := range n.dir.Peers {
		peer := peer
		if peer.ID == self {
			continue
		}
		grp.Go(func() error {
			if err := writeTo(peer, prefix[:]); err != nil {
				return err
			}
			return writeTo(peer, assign[peer.ID])
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	n.stats.BytesSent += uint64((num - 1) * (m + 8))
	n.msink.IncrCounterWithLabels(MetricExchangeOutBytes, float32((num-1)*(m+8)), labels)
	return bytes.Clone(assign[self]), nil
}

func readFrom(peer *Peer, buf []byte) error {
	if _, err := io.ReadFull(peer.conn, buf); err != nil {
		return fmt.Errorf("%w: reading %d bytes from peer %d: %w", ErrPeerIO, len(buf), peer.ID, err)
	}
	return nil
}

func writeTo(peer *Peer, buf []byte) error {
	if _, err := peer.conn.Write(buf); err != nil {
		return fmt.Errorf("%w: writing %d bytes to peer %d: %w", ErrPeerIO, len(buf), peer.ID, err)
	}
	return nil
}
