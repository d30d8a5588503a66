package mpcnet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
)

// Peer is one entry of the party roster. ID is the dense, zero-based
// party id; Addr is the TCP address the party listens on during mesh
// establishment. The connection handle is owned by the slot: it is set by
// the mesh connector, used exclusively by the worker assigned to this
// slot during a collective, and cleared by `Net.Uninit`.
type Peer struct {
	ID   int
	Addr string

	conn net.Conn
}

func (p *Peer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", p.ID),
		slog.String("addr", p.Addr),
	)
}

// Directory is the static topology of the party group: the ordered roster
// plus the caller's own id. Peer ids are contiguous from 0 and match the
// roster order. A Directory is immutable after load, except for the
// connection handle inside each Peer slot.
type Directory struct {
	Self  int
	Peers []*Peer
}

func (d *Directory) NumParties() int {
	return len(d.Peers)
}

// LoadDirectory reads a peer file from disk: one address per non-blank
// line, in ascending party-id order. Blank lines are skipped and do not
// consume an id. self is the caller's own party id.
func LoadDirectory(path string, self int) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryRead, err)
	}
	defer f.Close()
	return ParseDirectory(f, self)
}

// ParseDirectory parses a peer roster from r. See LoadDirectory for the
// format.
func ParseDirectory(r io.Reader, self int) (*Directory, error) {
	var peers []*Peer
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		addr := strings.TrimSpace(sc.Text())
		if addr == "" {
			continue
		}
		if err := checkAddress(addr); err != nil {
			return nil, fmt.Errorf("%w: line %d: %q: %w", ErrBadAddress, lineNo, addr, err)
		}
		peers = append(peers, &Peer{ID: len(peers), Addr: addr})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryRead, err)
	}
	if self < 0 || self >= len(peers) {
		return nil, fmt.Errorf("%w: id %d with %d peers", ErrOwnID, self, len(peers))
	}
	return &Directory{Self: self, Peers: peers}, nil
}

// checkAddress validates a "host:port" peer address without hitting the
// resolver, so a hostname-bearing roster can be parsed offline.
func checkAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return errors.New("empty host")
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
