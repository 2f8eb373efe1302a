package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"get", "list", "resumes", "download", "fetch", "quality", "sync", "serve", "migrate", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "boond-sync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	env := rootCmd.PersistentFlags().Lookup("env")
	require.NotNil(t, env)
	assert.Equal(t, "e", env.Shorthand)
	assert.Equal(t, "", env.DefValue)

	out := rootCmd.PersistentFlags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "json", out.DefValue)
}

func TestListCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"page":        "1",
		"max-results": "100",
		"keywords":    "",
		"all":         "false",
	} {
		flag := listCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "list should have --%s", name)
		assert.Equal(t, def, flag.DefValue)
	}
}

func TestSyncCommand_Flags(t *testing.T) {
	for _, name := range []string{"no-documents", "timeout", "summary"} {
		assert.NotNil(t, syncCmd.Flags().Lookup(name), "sync should have --%s", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestCommands_ArgCounts(t *testing.T) {
	assert.Error(t, getCmd.Args(getCmd, []string{"candidates"}))
	assert.NoError(t, getCmd.Args(getCmd, []string{"candidates", "1"}))
	assert.Error(t, listCmd.Args(listCmd, nil))
	assert.Error(t, downloadCmd.Args(downloadCmd, []string{"1", "2"}))
}
