package root_test

import (
	"testing"

	"fjacquet/finchat/cmd/root"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "finchat", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "chat bot")
	assert.Contains(t, root.Cmd.Long, "finchat records expenses and incomes")
	assert.NotNil(t, root.Cmd.Run)
	assert.NotNil(t, root.Cmd.PersistentPreRun)
}

func TestRootCommand_Flags(t *testing.T) {
	if root.Cmd.PersistentFlags().Lookup("log-level") == nil {
		root.Init()
	}

	logLevel := root.Cmd.PersistentFlags().Lookup("log-level")
	assert.NotNil(t, logLevel)
	assert.Equal(t, "", logLevel.DefValue)

	logFormat := root.Cmd.PersistentFlags().Lookup("log-format")
	assert.NotNil(t, logFormat)
	assert.Contains(t, logFormat.Usage, "json")
}
