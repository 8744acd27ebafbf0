package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"evaluate", "infer", "score", "check", "compare", "metrics", "cache"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, _, err := runCLI(t, "--config", "/nonexistent/.rrgen.yaml", "evaluate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading /nonexistent/.rrgen.yaml")
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 2, ExitError)
}
