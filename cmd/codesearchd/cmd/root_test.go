package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmdRegistersServeAndVersion(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"], "serve subcommand should be registered")
	assert.True(t, names["version"], "version subcommand should be registered")
}

func TestNewRootCmdHasDebugFlag(t *testing.T) {
	root := NewRootCmd()
	flag := root.PersistentFlags().Lookup("debug")
	assert.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
