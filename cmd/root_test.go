package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safescan/internal/config"
)

// testConfig mirrors the loaded defaults with a memory job store.
func testConfig() *config.Config {
	c := &config.Config{}
	c.Store.Driver = "memory"
	c.Store.JobTTLHours = 24
	c.Store.ProbeTimeoutSecs = 1
	c.Research.MaxConcurrentJobs = 2
	c.Research.RequestsPerMinute = 6000
	c.Research.GenerationTimeoutSecs = 5
	c.Research.GenerationAttempts = 1
	c.Research.StatusPath = "/api/v4/job/"
	c.Scoring.UnknownHazard = 40
	c.Server.Port = 8000
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeoutSecs = 5
	c.Server.WriteTimeoutSecs = 5
	c.Log.Level = "info"
	c.Log.Format = "json"
	return c
}

func writeProductFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"serve", "score", "research", "tiers"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "safescan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestResearchCommand_Flags(t *testing.T) {
	poll := researchCmd.Flags().Lookup("poll")
	require.NotNil(t, poll)
	assert.Equal(t, "2s", poll.DefValue)

	timeout := researchCmd.Flags().Lookup("timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "10m0s", timeout.DefValue)
}

func TestTiersCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range tiersCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["lookup"])
	assert.True(t, names["stats"])
}
