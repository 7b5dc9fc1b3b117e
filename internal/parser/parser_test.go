package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quash/internal/command"
	"quash/internal/parser"
)

func TestParse_SimpleEcho(t *testing.T) {
	entries, err := parser.Parse("echo hello")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stages := entries[0].Pipeline.Stages
	require.Len(t, stages, 1)
	assert.Equal(t, command.Echo, stages[0].Cmd.Kind)
	assert.Equal(t, []string{"echo", "hello"}, stages[0].Cmd.Argv)
}

func TestParse_Pipeline(t *testing.T) {
	entries, err := parser.Parse("cat file.txt | grep foo | wc -l")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stages := entries[0].Pipeline.Stages
	require.Len(t, stages, 3)

	assert.Equal(t, command.Flag(0), stages[0].Flags&command.PipeIn)
	assert.NotZero(t, stages[0].Flags&command.PipeOut)

	assert.NotZero(t, stages[1].Flags&command.PipeIn)
	assert.NotZero(t, stages[1].Flags&command.PipeOut)

	assert.NotZero(t, stages[2].Flags&command.PipeIn)
	assert.Equal(t, command.Flag(0), stages[2].Flags&command.PipeOut)
}

func TestParse_Background(t *testing.T) {
	entries, err := parser.Parse("sleep 5 &")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Pipeline.Background())
}

func TestParse_RedirectionsOnFirstAndLastStage(t *testing.T) {
	entries, err := parser.Parse("sort < in.txt > out.txt")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stages := entries[0].Pipeline.Stages
	require.Len(t, stages, 1)
	assert.Equal(t, "in.txt", stages[0].InputFile)
	assert.Equal(t, "out.txt", stages[0].OutputFile)
	assert.False(t, stages[0].Append)
}

func TestParse_AppendRedirection(t *testing.T) {
	entries, err := parser.Parse("echo hi >> log.txt")
	require.NoError(t, err)
	stages := entries[0].Pipeline.Stages
	require.Len(t, stages, 1)
	assert.Equal(t, "log.txt", stages[0].OutputFile)
	assert.True(t, stages[0].Append)
}

func TestParse_ConditionalAnd(t *testing.T) {
	entries, err := parser.Parse("echo a && echo b")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].NextAnd)
	assert.False(t, entries[0].NextOr)
}

func TestParse_ConditionalOr(t *testing.T) {
	entries, err := parser.Parse("false || echo fallback")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].NextOr)
}

func TestParse_Builtins(t *testing.T) {
	cases := []struct {
		line string
		kind command.Kind
	}{
		{"pwd", command.Pwd},
		{"jobs", command.Jobs},
		{"ps", command.Ps},
		{"exit", command.Exit},
	}
	for _, c := range cases {
		entries, err := parser.Parse(c.line)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Len(t, entries[0].Pipeline.Stages, 1)
		assert.Equal(t, c.kind, entries[0].Pipeline.Stages[0].Cmd.Kind)
	}
}

func TestParse_Cd(t *testing.T) {
	entries, err := parser.Parse("cd /tmp")
	require.NoError(t, err)
	cmd := entries[0].Pipeline.Stages[0].Cmd
	assert.Equal(t, command.Cd, cmd.Kind)
	assert.Equal(t, "/tmp", cmd.Path)
}

func TestParse_BareCd(t *testing.T) {
	entries, err := parser.Parse("cd")
	require.NoError(t, err)
	cmd := entries[0].Pipeline.Stages[0].Cmd
	assert.Equal(t, command.Cd, cmd.Kind)
	assert.Equal(t, "", cmd.Path)
}

func TestParse_ExportEqualsForm(t *testing.T) {
	entries, err := parser.Parse("export FOO=bar")
	require.NoError(t, err)
	cmd := entries[0].Pipeline.Stages[0].Cmd
	assert.Equal(t, command.Export, cmd.Kind)
	assert.Equal(t, "FOO", cmd.Name)
	assert.Equal(t, "bar", cmd.Value)
}

func TestParse_ExportTwoTokenForm(t *testing.T) {
	entries, err := parser.Parse("export FOO bar")
	require.NoError(t, err)
	cmd := entries[0].Pipeline.Stages[0].Cmd
	assert.Equal(t, command.Export, cmd.Kind)
	assert.Equal(t, "FOO", cmd.Name)
	assert.Equal(t, "bar", cmd.Value)
}

func TestParse_Kill(t *testing.T) {
	entries, err := parser.Parse("kill TERM 3")
	require.NoError(t, err)
	cmd := entries[0].Pipeline.Stages[0].Cmd
	assert.Equal(t, command.Kill, cmd.Kind)
	assert.Equal(t, 3, cmd.JobID)
}

func TestParse_KillWrongArgCount(t *testing.T) {
	_, err := parser.Parse("kill TERM")
	assert.Error(t, err)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("QUASH_GREETING", "hi")
	entries, err := parser.Parse("echo $QUASH_GREETING")
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hi"}, entries[0].Pipeline.Stages[0].Cmd.Argv)
}
