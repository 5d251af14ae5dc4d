package main

import (
	"errors"
	"testing"

	"winbot/chain"
	"winbot/process"
	"winbot/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget(t *testing.T) (*process_blob.System, *process_blob.ProcessBlob) {
	t.Helper()

	sys := process_blob.New()
	p := sys.AddProcess(900)
	p.Map(0x400000, 0x1000, "r--p")
	p.Map(0x10000, 0x1000, "rw-p")
	sys.AddModule(900, "Game.exe", 0x400000, 0x1000)
	sys.AddWindow("GameClass", "Game", 900)

	require.NoError(t, p.PutUint32(0x400100, 0x10000))
	require.NoError(t, p.PutInt32(0x10040, 120))
	return sys, p
}

func TestRunReadAndWrite(t *testing.T) {
	sys, p := newTarget(t)

	err := run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "100", "-offsets", "40", "-write", "75", "-dump", "16"})
	require.NoError(t, err)

	got, err := p.Bytes(0x10040, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{75, 0, 0, 0}, got)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestRunReleasesHandleOnError(t *testing.T) {
	sys, _ := newTarget(t)

	err := run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "100", "-offsets", "40", "-write", "many"})
	assert.ErrorIs(t, err, process.ErrFormat)
	assert.Equal(t, 0, sys.OpenHandles())

	err = run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "100", "-offsets", "40,0,0"})
	var broken *chain.ChainBrokenError
	require.True(t, errors.As(err, &broken))
	assert.Equal(t, 2, broken.Hop)
	assert.Equal(t, 0, sys.OpenHandles())

	// resolves to address 0, which is not mapped
	err = run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "0", "-offsets", "0", "-write", "1"})
	assert.Error(t, err)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestRunUsage(t *testing.T) {
	sys, _ := newTarget(t)

	err := run(sys, []string{"-module", "Game.exe", "-base", "100", "-offsets", "40"})
	assert.ErrorIs(t, err, errUsage)

	err = run(sys, []string{"-class", "GameClass", "-base", "100", "-offsets", "40"})
	assert.ErrorIs(t, err, errUsage)

	err = run(sys, []string{"-class", "GameClass", "-module", "Game.exe", "-base", "zz", "-offsets", "40"})
	assert.ErrorIs(t, err, errUsage)
	assert.Equal(t, 0, sys.OpenHandles())
}
