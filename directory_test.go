package mpcnet

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDirectory(t *testing.T) {
	roster := strings.NewReader("10.0.0.1:7000\n\n  10.0.0.2:7000  \n\nnode-3.mpc.internal:7000\n")
	dir, err := ParseDirectory(roster, 1)
	require.NoError(t, err)

	require.Equal(t, 1, dir.Self)
	require.Equal(t, 3, dir.NumParties())
	for id, peer := range dir.Peers {
		require.Equal(t, id, peer.ID, "peer ids must be dense and ordered")
	}
	require.Equal(t, "10.0.0.1:7000", dir.Peers[0].Addr)
	require.Equal(t, "10.0.0.2:7000", dir.Peers[1].Addr, "surrounding whitespace is trimmed")
	require.Equal(t, "node-3.mpc.internal:7000", dir.Peers[2].Addr, "hostnames are not resolved at parse time")
}

func TestParseDirectoryBlankLinesConsumeNoID(t *testing.T) {
	roster := strings.NewReader("\n\n127.0.0.1:1:extra\n")
	_, err := ParseDirectory(roster, 0)
	require.ErrorIs(t, err, ErrBadAddress)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseDirectoryBadAddress(t *testing.T) {
	for _, line := range []string{
		"no-port-here",
		":7000",
		"127.0.0.1:notaport",
		"127.0.0.1:99999",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseDirectory(strings.NewReader(line+"\n"), 0)
			require.ErrorIs(t, err, ErrBadAddress)
		})
	}
}

func TestParseDirectoryOwnIDRange(t *testing.T) {
	const roster = "127.0.0.1:7000\n127.0.0.1:7001\n"

	_, err := ParseDirectory(strings.NewReader(roster), 2)
	require.ErrorIs(t, err, ErrOwnID)

	_, err = ParseDirectory(strings.NewReader(roster), -1)
	require.ErrorIs(t, err, ErrOwnID)

	dir, err := ParseDirectory(strings.NewReader(roster), 1)
	require.NoError(t, err)
	require.Equal(t, 1, dir.Self)
}

func TestLoadDirectoryMissingFile(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "nope.txt"), 0)
	require.ErrorIs(t, err, ErrDirectoryRead)
}
