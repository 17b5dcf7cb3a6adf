package main

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/okx/scatter/utils"
)

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, lvl)

	lvl, err = parseLevel("")
	require.NoError(t, err)
	require.Equal(t, log.LevelInfo, lvl)

	_, err = parseLevel("loud")
	require.Error(t, err)
}

func TestKeygenCmd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "keys")

	cmd := keygenCmd()
	cmd.SetArgs([]string{"-n", "3", "-o", out})
	require.NoError(t, cmd.Execute())

	creds, err := utils.LoadCredentials(out)
	require.NoError(t, err)
	require.Len(t, creds, 3)

	cmd = keygenCmd()
	cmd.SetArgs([]string{"-n", "1", "-o", out})
	require.Error(t, cmd.Execute(), "existing file needs --force")
}
