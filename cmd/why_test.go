package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notashelf.dev/flake-graph/internal/lockgraph"
)

func TestWhyCommand(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "configured lock",
			args:     []string{"why", "home-manager"},
			expected: "root -[home-manager]-> home-manager\n",
		},
		{
			name:     "positional lock",
			args:     []string{"why", filepath.Join("testdata", "dupes.lock"), "nixpkgs_2"},
			expected: "root -[neovim]-> neovim -[nixpkgs]-> nixpkgs_2\n",
		},
		{
			name:     "renamed input",
			args:     []string{"why", filepath.Join("testdata", "dupes.lock"), "nixpkgs_3"},
			expected: "root -[stable]-> nixpkgs_3\n",
		},
		{
			name:     "root",
			args:     []string{"why", "root"},
			expected: "root\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, testConfig(), tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stdout)
		})
	}
}

func TestWhyCommand_UnknownNode(t *testing.T) {
	_, _, err := execute(t, testConfig(), "why", "flake-parts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "flake-parts" not found`)
}

func TestWhyCommand_Arguments(t *testing.T) {
	_, _, err := execute(t, testConfig(), "why")
	assert.Error(t, err)

	_, _, err = execute(t, testConfig(), "why", "a", "b", "c")
	assert.Error(t, err)
}

const staleLock = `{
  "nodes": {
    "nixpkgs": {
      "locked": {"lastModified": 1, "narHash": "sha256-a", "owner": "NixOS", "repo": "nixpkgs", "rev": "abc", "type": "github"}
    },
    "old-utils": {
      "locked": {"lastModified": 1, "narHash": "sha256-b", "owner": "numtide", "repo": "flake-utils", "rev": "def", "type": "github"}
    },
    "root": {"inputs": {"nixpkgs": "nixpkgs"}}
  },
  "root": "root",
  "version": 7
}`

func TestWhyCommand_Unreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flake.lock")
	require.NoError(t, os.WriteFile(path, []byte(staleLock), 0o644))

	stdout, _, err := execute(t, testConfig(), "why", "--unreachable", path)
	require.NoError(t, err)
	assert.Equal(t, "old-utils\n", stdout)

	_, _, err = execute(t, testConfig(), "why", path, "old-utils")
	require.ErrorIs(t, err, lockgraph.ErrUnreachable)
}

func TestWhyCommand_UnreachableNoneStale(t *testing.T) {
	stdout, _, err := execute(t, testConfig(), "why", "--unreachable")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}
