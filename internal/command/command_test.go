package command_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"quash/internal/command"
)

func TestStageString_ExternalWithRedirections(t *testing.T) {
	stage := command.Stage{
		Cmd:        command.NewExternal([]string{"sort", "-r"}),
		InputFile:  "in.txt",
		OutputFile: "out.txt",
		Append:     false,
	}
	assert.Equal(t, "sort -r <in.txt >out.txt", stage.String())
}

func TestStageString_AppendRedirection(t *testing.T) {
	stage := command.Stage{
		Cmd:        command.NewEcho([]string{"echo", "hi"}),
		OutputFile: "out.txt",
		Append:     true,
	}
	assert.Equal(t, "echo hi >>out.txt", stage.String())
}

func TestStageString_Kill(t *testing.T) {
	stage := command.Stage{Cmd: command.NewKill(15, 2)}
	assert.Equal(t, "kill 15 2", stage.String())
}

func TestPipelineString_BackgroundAndPipes(t *testing.T) {
	pipeline := command.Pipeline{
		Stages: []command.Stage{
			{Cmd: command.NewExternal([]string{"cat", "f"}), Flags: command.PipeOut | command.Background},
			{Cmd: command.NewExternal([]string{"grep", "x"}), Flags: command.PipeIn},
		},
	}
	assert.Equal(t, "cat f | grep x &", pipeline.String())
}

func TestPipeline_EmptyAndBareExit(t *testing.T) {
	var empty command.Pipeline
	assert.True(t, empty.Empty())
	assert.False(t, empty.IsBareExit())

	bareExit := command.Pipeline{Stages: []command.Stage{{Cmd: command.NewExit()}}}
	assert.False(t, bareExit.Empty())
	assert.True(t, bareExit.IsBareExit())

	exitPiped := command.Pipeline{Stages: []command.Stage{
		{Cmd: command.NewExit()},
		{Cmd: command.NewExternal([]string{"cat"})},
	}}
	assert.False(t, exitPiped.IsBareExit())
}

func TestPipeline_DeepEqual(t *testing.T) {
	a := command.Pipeline{Stages: []command.Stage{{Cmd: command.NewPwd()}}}
	b := command.Pipeline{Stages: []command.Stage{{Cmd: command.NewPwd()}}}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("pipelines should be equal (-want +got):\n%s", diff)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "External", command.External.String())
	assert.Equal(t, "Unknown", command.Kind(99).String())
}
