package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "healthkeeper version 0.1.0 (build: dev)\n", out.String())
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := rootCmd()
	for _, name := range []string{"config", "api-url", "db", "online-interval", "log-level", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--api-url", "ftp://example.org", "--db", filepath.Join(t.TempDir(), "hk.db")})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRootCommand_RunsREPL(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(bytes.NewBufferString("exit\n"))
	cmd.SetArgs([]string{"--api-url", "http://127.0.0.1:1/api", "--db", filepath.Join(t.TempDir(), "hk.db"), "--log-level", "error"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Bye!")
}
