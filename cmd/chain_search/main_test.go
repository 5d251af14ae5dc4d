package main

import (
	"testing"

	"winbot/process"
	"winbot/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget(t *testing.T) *process_blob.System {
	t.Helper()

	sys := process_blob.New()
	p := sys.AddProcess(901)
	p.Map(0x400000, 0x1000, "r--p")
	p.Map(0x10000, 0x1000, "rw-p")
	sys.AddModule(901, "Game.exe", 0x400000, 0x1000)
	sys.AddWindow("GameClass", "Game", 901)

	require.NoError(t, p.PutUint32(0x400100, 0x10000))
	require.NoError(t, p.PutInt32(0x10040, 4242))
	return sys
}

func TestRunSearch(t *testing.T) {
	sys := newTarget(t)

	err := run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "100", "-value", "4242"})
	require.NoError(t, err)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestRunSearchReleasesHandleOnError(t *testing.T) {
	sys := newTarget(t)

	// base offset outside the module
	err := run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "2000", "-value", "1"})
	assert.ErrorIs(t, err, process.ErrReadFailed)
	assert.Equal(t, 0, sys.OpenHandles())

	err = run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "100", "-value", "1", "-width", "3"})
	assert.ErrorIs(t, err, process.ErrWidthMismatch)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestRunSearchUsage(t *testing.T) {
	sys := newTarget(t)

	err := run(sys, []string{"-class", "GameClass", "-module", "Game.exe"})
	assert.ErrorIs(t, err, errUsage)
}
