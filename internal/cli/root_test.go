package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tcf", cmd.Use)
	assert.Contains(t, cmd.Long, "worker registry")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"workorder", "submit"},
		{"workorder", "result"},
		{"workorder", "key-get"},
		{"workorder", "key-set"},
		{"receipt", "create"},
		{"receipt", "update"},
		{"receipt", "retrieve"},
		{"receipt", "update-retrieve"},
		{"receipt", "lookup"},
		{"receipt", "lookup-next"},
		{"worker", "register"},
		{"worker", "update"},
		{"worker", "set-status"},
		{"worker", "retrieve"},
		{"worker", "lookup"},
		{"worker", "lookup-next"},
		{"validate"},
		{"emulate"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "uri", "id", "strict-ids"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestResultCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	resultCmd, _, err := cmd.Find([]string{"workorder", "result"})
	require.NoError(t, err)

	waitFlag := resultCmd.Flags().Lookup("wait")
	require.NotNil(t, waitFlag)
	assert.Equal(t, "w", waitFlag.Shorthand)
	assert.Equal(t, "false", waitFlag.DefValue)

	for _, name := range []string{"interval", "max-attempts", "timeout"} {
		assert.NotNil(t, resultCmd.Flags().Lookup(name), name)
	}
}

func TestUpdateRetrieveDefaultsToLatest(t *testing.T) {
	cmd := NewRootCommand()
	urCmd, _, err := cmd.Find([]string{"receipt", "update-retrieve"})
	require.NoError(t, err)

	indexFlag := urCmd.Flags().Lookup("index")
	require.NotNil(t, indexFlag)
	assert.Equal(t, "latest", indexFlag.DefValue)
}

func TestEmulateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	emulateCmd, _, err := cmd.Find([]string{"emulate"})
	require.NoError(t, err)

	for _, name := range []string{"addr", "db", "page-size", "pending-polls"} {
		assert.NotNil(t, emulateCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "-1", emulateCmd.Flags().Lookup("pending-polls").DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "receipt", "retrieve", "wo-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseIndex(t *testing.T) {
	idx, err := parseIndex("latest", 0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), idx)

	idx, err = parseIndex("3", 0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), idx)

	_, err = parseIndex("-1", 0xFFFFFFFF)
	assert.Error(t, err)
	_, err = parseIndex("4294967296", 0xFFFFFFFF)
	assert.Error(t, err)
}

func TestJSONOrString(t *testing.T) {
	assert.Nil(t, jsonOrString(nil))
	assert.Equal(t, "plain text", jsonOrString([]byte("plain text")))
	assert.Equal(t, "quoted", jsonOrString([]byte(`"quoted"`)))

	obj, ok := jsonOrString([]byte(`{"workOrderId":"0x1"}`)).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x1", obj["workOrderId"])
}
