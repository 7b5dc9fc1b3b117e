package engine_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quash/internal/command"
	"quash/internal/engine"
	"quash/internal/environment"
	"quash/internal/job"
)

func newEngine(out *bytes.Buffer) *engine.Engine {
	return engine.New(environment.New(0), job.NewTable(out))
}

func TestRun_EmptyPipelineIsNoOp(t *testing.T) {
	e := newEngine(&bytes.Buffer{})
	require.NoError(t, e.Run(command.Pipeline{}, ""))
}

func TestRun_BareExitReturnsSentinel(t *testing.T) {
	e := newEngine(&bytes.Buffer{})
	pipeline := command.Pipeline{Stages: []command.Stage{{Cmd: command.NewExit()}}}
	err := e.Run(pipeline, "exit")
	assert.ErrorIs(t, err, engine.ExitRequested)
}

func TestRun_ExternalForegroundBlocks(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	e := newEngine(&bytes.Buffer{})

	pipeline := command.Pipeline{Stages: []command.Stage{
		{Cmd: command.NewExternal([]string{"echo", "done"}), OutputFile: out},
	}}

	require.NoError(t, e.Run(pipeline, "echo done"))

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(contents))
}

func TestRun_BackgroundPipelineRegistersJob(t *testing.T) {
	var jobOut bytes.Buffer
	e := engine.New(environment.New(0), job.NewTable(&jobOut))

	pipeline := command.Pipeline{Stages: []command.Stage{
		{Cmd: command.NewExternal([]string{"sleep", "0.2"}), Flags: command.Background},
	}}

	require.NoError(t, e.Run(pipeline, "sleep 0.2 &"))
	assert.Contains(t, jobOut.String(), "Background job started:")

	require.Len(t, e.Jobs.List(), 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(e.Jobs.List()) != 0 {
		e.Jobs.Poll()
		time.Sleep(20 * time.Millisecond)
	}
	assert.Empty(t, e.Jobs.List())
}

func TestRun_PipelineThroughTwoStages(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	e := newEngine(&bytes.Buffer{})

	pipeline := command.Pipeline{Stages: []command.Stage{
		{Cmd: command.NewEcho([]string{"echo", "hi"}), Flags: command.PipeOut},
		{Cmd: command.NewExternal([]string{"cat"}), Flags: command.PipeIn, OutputFile: out},
	}}

	require.NoError(t, e.Run(pipeline, "echo hi | cat"))

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hi \n", string(contents))
}
