package mpcnet

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testLogHandler(id int) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}).WithAttrs([]slog.Attr{
		{Key: "emitter", Value: slog.StringValue(fmt.Sprintf("party_%d", id))},
	})
}

// freeAddrs grabs n distinct localhost ports by binding and immediately
// releasing them, so a whole party group can share one roster.
func freeAddrs(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, n)
	for i := range addrs {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = ln.Addr().String()
		require.NoError(t, ln.Close())
	}
	return addrs
}

func writePeerFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peers.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

// startMesh brings up a full in-process party group over real localhost
// TCP, one goroutine per party, joined before returning.
func startMesh(t *testing.T, num int, opts ...Option) ([]*Net, string) {
	t.Helper()
	path := writePeerFile(t, freeAddrs(t, num))

	nets := make([]*Net, num)
	var grp errgroup.Group
	for id := 0; id < num; id++ {
		id := id
		grp.Go(func() error {
			options := append([]Option{
				WithLog(testLogHandler(id)),
				WithConnectTimeout(10 * time.Second),
			}, opts...)
			n, err := Create(options...)
			if err != nil {
				return err
			}
			if err := n.Init(path, id); err != nil {
				return fmt.Errorf("party %d: %w", id, err)
			}
			nets[id] = n
			return nil
		})
	}
	require.NoError(t, grp.Wait())
	t.Cleanup(func() {
		for _, n := range nets {
			if n != nil {
				_ = n.Uninit()
			}
		}
	})
	return nets, path
}

// eachParty runs f for every party in lock-step, one goroutine per
// party, and fails the test if any party errors.
func eachParty(t *testing.T, nets []*Net, f func(n *Net) error) {
	t.Helper()
	var grp errgroup.Group
	for _, n := range nets {
		n := n
		grp.Go(func() error {
			if err := f(n); err != nil {
				return fmt.Errorf("party %d: %w", n.PartyID(), err)
			}
			return nil
		})
	}
	require.NoError(t, grp.Wait())
}

func TestMeshEstablishment(t *testing.T) {
	nets, _ := startMesh(t, 4)

	for id, n := range nets {
		require.True(t, n.Connected())
		require.Equal(t, id, n.PartyID())
		require.Equal(t, 4, n.NumParties())
		require.Equal(t, id == 0, n.AmKing())
	}
}

func TestMeshSingleParty(t *testing.T) {
	nets, _ := startMesh(t, 1)
	n := nets[0]

	require.True(t, n.Connected())
	require.True(t, n.AmKing())

	out, err := n.Broadcast([]byte("solo"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("solo")}, out)

	st := n.Stats()
	require.Zero(t, st.BytesSent)
	require.Zero(t, st.BytesRecv)
	require.Equal(t, uint64(1), st.Broadcasts)
}

func TestUninitThenReinit(t *testing.T) {
	nets, path := startMesh(t, 3)

	eachParty(t, nets, func(n *Net) error {
		_, err := n.Broadcast([]byte{byte(n.PartyID())})
		return err
	})

	for _, n := range nets {
		require.NoError(t, n.Uninit())
		require.False(t, n.Connected())
		_, err := n.Broadcast([]byte("x"))
		require.ErrorIs(t, err, ErrNotConnected)
	}

	// Topology and counters survive teardown.
	require.Equal(t, uint64(1), nets[1].Stats().Broadcasts)
	require.Equal(t, 3, nets[1].NumParties())

	eachParty(t, nets, func(n *Net) error {
		return n.Init(path, n.PartyID())
	})
	eachParty(t, nets, func(n *Net) error {
		_, err := n.Broadcast([]byte{byte(n.PartyID())})
		return err
	})
	require.Equal(t, uint64(2), nets[2].Stats().Broadcasts)
}

func TestInitErrors(t *testing.T) {
	t.Run("unreadable peer file", func(t *testing.T) {
		n, err := Create(WithLog(testLogHandler(0)))
		require.NoError(t, err)
		err = n.Init(filepath.Join(t.TempDir(), "missing.txt"), 0)
		require.ErrorIs(t, err, ErrDirectoryRead)
		require.False(t, n.Connected())
	})

	t.Run("malformed address fails before any socket", func(t *testing.T) {
		path := writePeerFile(t, []string{"127.0.0.1:7000", "not-an-address"})
		n, err := Create(WithLog(testLogHandler(0)))
		require.NoError(t, err)
		err = n.Init(path, 0)
		require.ErrorIs(t, err, ErrBadAddress)
		require.False(t, n.Connected())
	})

	t.Run("own id out of range", func(t *testing.T) {
		path := writePeerFile(t, []string{"127.0.0.1:7000", "127.0.0.1:7001"})
		n, err := Create(WithLog(testLogHandler(0)))
		require.NoError(t, err)
		require.ErrorIs(t, n.Init(path, 2), ErrOwnID)
	})

	t.Run("double init", func(t *testing.T) {
		nets, path := startMesh(t, 2)
		require.ErrorIs(t, nets[0].Init(path, 0), ErrAlreadyConnected)
	})
}

func TestConnectTimeout(t *testing.T) {
	// Party 1 never shows up, so party 0 must give up dialing it within
	// the configured window.
	addrs := freeAddrs(t, 2)
	path := writePeerFile(t, addrs)

	n, err := Create(
		WithLog(testLogHandler(0)),
		WithRetryInterval(5*time.Millisecond),
		WithConnectTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)

	start := time.Now()
	err = n.Init(path, 0)
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
	require.False(t, n.Connected())
}

func TestCreateOptionValidation(t *testing.T) {
	_, err := Create(WithRetryInterval(-1 * time.Second))
	require.ErrorIs(t, err, ErrInvalidCfg)

	_, err = Create(WithConnectTimeout(-1 * time.Second))
	require.ErrorIs(t, err, ErrInvalidCfg)

	n, err := Create(WithRetryInterval(0), WithConnectTimeout(0), WithMetricSink(nil))
	require.NoError(t, err)
	require.Equal(t, defaultRetryInterval, n.cfg.retryInterval)
	require.Equal(t, defaultConnectTimeout, n.cfg.connectTimeout)
	require.IsType(t, &metrics.BlackholeSink{}, n.msink)
}

func TestAccessorsBeforeInit(t *testing.T) {
	n, err := Create()
	require.NoError(t, err)

	require.Equal(t, -1, n.PartyID())
	require.Zero(t, n.NumParties())
	require.False(t, n.AmKing())
	require.False(t, n.Connected())
	require.NoError(t, n.Uninit())

	for _, op := range []func() error{
		func() error { _, err := n.Broadcast([]byte("x")); return err },
		func() error { _, err := n.SendToKing([]byte("x")); return err },
		func() error { _, err := n.RecvFromKing(nil); return err },
	} {
		require.True(t, errors.Is(op(), ErrNotConnected))
	}
}
