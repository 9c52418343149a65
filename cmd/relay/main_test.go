package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "relay version 0.1.0\n", out)
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "customer_profile_sensitive_tools")
}

func TestSessionLsCommand_FileStore(t *testing.T) {
	out, err := execute(t, "session", "ls", "--store", "file")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestInvalidProviderFlag(t *testing.T) {
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("provider", "scripted") })

	_, err := execute(t, "graph", "--provider", "llama")
	assert.ErrorContains(t, err, "unknown provider")
}
