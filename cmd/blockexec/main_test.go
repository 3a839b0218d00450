package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transferFixture = `{
	"alloc": {
		"0x71562b71999873DB5b286dF957af199Ec94617F7": {"balance": "0xde0b6b3a7640000"},
		"0x0000000000000000000000000000000000001000": {"code": "0x00"}
	},
	"header": {"number": 10, "gasLimit": 30000000, "timestamp": 1000},
	"transactions": [
		{"from": "0x71562b71999873DB5b286dF957af199Ec94617F7", "nonce": "0x0", "gasPrice": "0x1", "gas": "0x5208", "to": "0x1000000000000000000000000000000000000001", "value": "0x1", "v": "0x1b", "r": "0x1", "s": "0x1"},
		{"from": "0x71562b71999873DB5b286dF957af199Ec94617F7", "nonce": "0x5", "gasPrice": "0x1", "gas": "0x5208", "to": "0x1000000000000000000000000000000000000001", "value": "0x1", "v": "0x1b", "r": "0x1", "s": "0x1"}
	],
	"bundles": [
		{"txs": [{"from": "0x71562b71999873DB5b286dF957af199Ec94617F7", "nonce": "0x0", "gasPrice": "0x2", "gas": "0x5208", "to": "0x1000000000000000000000000000000000000001", "value": "0x1", "v": "0x1b", "r": "0x1", "s": "0x1"}]}
	],
	"candidates": [
		{"id": "C1", "gasUsed": 5, "gasPrice": "0xa"},
		{"id": "C2", "gasUsed": 6, "gasPrice": "0x8"},
		{"id": "C3", "gasUsed": 3, "gasPrice": "0x5"}
	],
	"systemCalls": [
		{"to": "0x0000000000000000000000000000000000001000", "input": "0x"}
	]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"blockexec", "--verbosity", "0"}, args...))
	return out.String(), err
}

func TestExecuteCommand(t *testing.T) {
	fixture := writeFile(t, "fixture.json", transferFixture)

	out, err := runApp(t, "execute", "--fixture", fixture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce too high")
	assert.Contains(t, out, "executed")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "gas used: 21000")

	out, err = runApp(t, "execute", "--fixture", fixture, "--nononce")
	require.NoError(t, err)
	assert.NotContains(t, out, "rejected")
	assert.Contains(t, out, "gas used: 42000")
}

func TestSelectCommand(t *testing.T) {
	fixture := writeFile(t, "fixture.json", transferFixture)

	out, err := runApp(t, "select", "--fixture", fixture, "--gaslimit", "8", "--maxbundles", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "C1")
	assert.Contains(t, out, "C3")
	assert.NotContains(t, out, "C2")
	assert.Less(t, strings.Index(out, "C1"), strings.Index(out, "C3"))
	assert.Contains(t, out, "8/8")
}

func TestBuildCommand(t *testing.T) {
	fixture := writeFile(t, "fixture.json", transferFixture)

	out, err := runApp(t, "build", "--fixture", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "block 11")
	assert.Contains(t, out, "2 txs, 1 bundles")
}

func TestDumpConfig(t *testing.T) {
	config := writeFile(t, "config.toml", `
[Executor]
FaultPolicy = "abort"

[Miner]
GasCeil = 5000000

[Miner.Mev]
MaxMergedBundles = 3
`)
	out, err := runApp(t, "--config", config, "dumpconfig")
	require.NoError(t, err)
	assert.Contains(t, out, `FaultPolicy = "abort"`)
	assert.Contains(t, out, "GasCeil = 5000000")
	assert.Contains(t, out, "MaxMergedBundles = 3")

	bad := writeFile(t, "bad.toml", "[Executor]\nUnknown = 1\n")
	_, err = runApp(t, "--config", bad, "dumpconfig")
	assert.Error(t, err)
}
