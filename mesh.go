package mpcnet

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

// roundSyncToken is the single byte handed from the finishing connector
// of round r to the connector of round r+1. Its value carries no meaning;
// only its arrival does.
const roundSyncToken byte = 0x00

// connectAll establishes one bidirectional stream per peer. Pairs are
// processed in rounds indexed by the lower party id r; within round r the
// party with id r dials every higher id c while c accepts, and everyone
// else is idle for that pair. After its round, party r hands a one-byte
// token to party r+1 over their fresh stream; r+1 blocks on that token
// before opening its own listener, which keeps round r+1's accepts from
// racing round r's still-in-flight dials.
//
// Caller must hold n.lk.
func (n *Net) connectAll() error {
	self := n.dir.Self
	num := len(n.dir.Peers)

	for r := 0; r < num; r++ {
		for c := r + 1; c < num; c++ {
			switch self {
			case r:
				conn, err := n.dialPeer(n.dir.Peers[c])
				if err != nil {
					return err
				}
				n.dir.Peers[c].conn = conn
			case c:
				conn, err := n.acceptPeer(n.dir.Peers[r])
				if err != nil {
					return err
				}
				n.dir.Peers[r].conn = conn
			}
		}

		if r+1 < num {
			if self == r {
				if _, err := n.dir.Peers[r+1].conn.Write([]byte{roundSyncToken}); err != nil {
					return fmt.Errorf("%w: handing round %d token: %w", ErrMeshSetup, r, err)
				}
			} else if self == r+1 {
				var token [1]byte
				if _, err := io.ReadFull(n.dir.Peers[r].conn, token[:]); err != nil {
					return fmt.Errorf("%w: awaiting round %d token: %w", ErrMeshSetup, r, err)
				}
			}
		}
	}

	for _, peer := range n.dir.Peers {
		if peer.ID != self && peer.conn == nil {
			return fmt.Errorf("%w: peer %d", ErrMeshIncomplete, peer.ID)
		}
	}
	n.connected = true
	n.logger.Debug("mesh established", LabelParty.L(self), "parties", num)
	return nil
}

// dialPeer connects out to a higher-id peer, retrying refused/reset
// outcomes on a fixed interval until the wall-clock give-up. Any other
// dial error is fatal: the roster is static, so an unroutable address is
// a deployment bug, not a peer that has not started yet.
func (n *Net) dialPeer(peer *Peer) (net.Conn, error) {
	logger := n.logger.With(LabelPeer.L(peer.ID), LabelPeerAddr.L(peer.Addr))
	logger.Debug("contacting peer")

	deadline := time.Now().Add(n.cfg.connectTimeout)
	for {
		conn, err := net.Dial("tcp", peer.Addr)
		if err == nil {
			if err := setNoDelay(conn); err != nil {
				conn.Close()
				return nil, fmt.Errorf("%w: tuning stream to peer %d: %w", ErrMeshSetup, peer.ID, err)
			}
			n.msink.IncrCounterWithLabels(MetricMeshConnEstCount, 1.0, n.mLabels())
			logger.Debug("peer connected")
			return conn, nil
		}

		if !retryableDialError(err) {
			return nil, fmt.Errorf("%w: dialing peer %d: %w", ErrMeshSetup, peer.ID, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: peer %d unreachable for %s", ErrConnectTimeout, peer.ID, n.cfg.connectTimeout)
		}
		n.msink.IncrCounterWithLabels(MetricMeshDialRetryCount, 1.0, n.mLabels())
		time.Sleep(n.cfg.retryInterval)
	}
}

// acceptPeer binds this party's own recorded address and accepts exactly
// one inbound stream, which the round schedule guarantees comes from the
// expected lower-id peer.
func (n *Net) acceptPeer(peer *Peer) (net.Conn, error) {
	own := n.dir.Peers[n.dir.Self]
	logger := n.logger.With(LabelPeer.L(peer.ID), "listen_addr", own.Addr)
	logger.Debug("awaiting peer")

	ln, err := net.Listen("tcp", own.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listening on %s: %w", ErrMeshSetup, own.Addr, err)
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("%w: accepting peer %d: %w", ErrMeshSetup, peer.ID, err)
	}
	if err := setNoDelay(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: tuning stream from peer %d: %w", ErrMeshSetup, peer.ID, err)
	}
	n.msink.IncrCounterWithLabels(MetricMeshConnEstCount, 1.0, n.mLabels())
	logger.Debug("peer connected")
	return conn, nil
}

// setNoDelay disables send-coalescing so small protocol messages go out
// with the lowest possible latency.
func setNoDelay(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return tc.SetNoDelay(true)
}

func retryableDialError(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
