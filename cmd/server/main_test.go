package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/gacha-mint/internal/gacha"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigCheckDefaults(t *testing.T) {
	out, err := run(t, "config", "check")
	require.NoError(t, err)
	require.Contains(t, out, "ok: network=preprod pull_cost=5.000000 ADA")
	require.Contains(t, out, "tiers=4")
}

func TestConfigCheckRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: moon\n"), 0o600))
	_, err := run(t, "--config", path, "config", "check")
	require.ErrorContains(t, err, "invalid configuration")
}

func TestOddsTable(t *testing.T) {
	out, err := run(t, "odds", "--trials", "5000", "--seed", "9")
	require.NoError(t, err)
	for _, want := range []string{"TIER", "Legendary", "Epic", "Rare", "Common", "1.00%", "70.00%", "[0, 1]"} {
		require.Contains(t, out, want)
	}
}

func TestOddsJSON(t *testing.T) {
	out, err := run(t, "odds", "--trials", "1000", "--seed", "9", "--json")
	require.NoError(t, err)
	var odds gacha.Odds
	require.NoError(t, json.Unmarshal([]byte(out), &odds))
	require.Equal(t, 1000, odds.Trials)
	require.Len(t, odds.Tiers, 4)
	require.Equal(t, gacha.Legendary, odds.Tiers[0].Tier)
}
