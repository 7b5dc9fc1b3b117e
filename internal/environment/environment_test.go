package environment_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quash/internal/environment"
)

func TestResolveOnPath_AbsolutePath(t *testing.T) {
	env := environment.New(0)
	path, ok := env.ResolveOnPath("/bin/sh")
	if !ok {
		t.Skip("/bin/sh not present in this environment")
	}
	assert.Equal(t, "/bin/sh", path)
}

func TestResolveOnPath_SearchesPATH(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "mytool")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("PATH", dir)

	env := environment.New(0)
	resolved, ok := env.ResolveOnPath("mytool")
	require.True(t, ok)
	assert.Equal(t, binPath, resolved)
}

func TestResolveOnPath_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	env := environment.New(0)
	_, ok := env.ResolveOnPath("definitely-not-a-real-binary")
	assert.False(t, ok)
}

func TestResolveOnPath_CachesWithinTTL(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(binPath, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	env := environment.New(time.Minute)
	first, ok := env.ResolveOnPath("tool")
	require.True(t, ok)

	require.NoError(t, os.Remove(binPath))

	second, ok := env.ResolveOnPath("tool")
	require.True(t, ok, "cached result should still report found after removal")
	assert.Equal(t, first, second)
}

func TestSetAndGet(t *testing.T) {
	env := environment.New(0)
	require.NoError(t, env.Set("QUASH_TEST_VAR", "value"))
	got, ok := env.Get("QUASH_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestHome_PrefersHomeEnv(t *testing.T) {
	t.Setenv("HOME", "/home/quash-test")
	env := environment.New(0)
	assert.Equal(t, "/home/quash-test", env.Home())
}
