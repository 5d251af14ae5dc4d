package memreader

import (
	"errors"
	"testing"

	"winbot/chain"
	"winbot/process"
	"winbot/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gamePID = process.ProcessID(3100)

// newGame lays out a process whose Game.exe module at 0x400000 holds a
// two-level chain to a player record at 0x10200
func newGame(t *testing.T) (*process_blob.System, *process_blob.ProcessBlob) {
	t.Helper()

	sys := process_blob.New()
	p := sys.AddProcess(gamePID)
	p.Map(0x400000, 0x1000, "r--p")
	p.Map(0x10000, 0x1000, "rw-p")

	sys.AddModule(gamePID, "kernel32.dll", 0x76000000, 0x1000)
	sys.AddModule(gamePID, "Game.exe", 0x400000, 0x1000)
	sys.AddWindow("GameClass", "Game", gamePID)

	require.NoError(t, p.PutUint32(0x400100, 0x10000))
	require.NoError(t, p.PutUint32(0x10040, 0x10200))
	require.NoError(t, p.PutInt32(0x10208, 4500))
	require.NoError(t, p.PutFloat32(0x1020C, 1.5))
	require.NoError(t, p.Put(0x10210, []byte("Arthas\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")))
	return sys, p
}

func TestFinalPointer(t *testing.T) {
	sys, _ := newGame(t)

	mr, err := New(sys, "game.exe", WithWindowClass("GameClass"))
	require.NoError(t, err)
	defer mr.Close()

	assert.Equal(t, gamePID, mr.PID())
	assert.NotZero(t, mr.HWND())
	assert.Equal(t, uint64(0x400000), mr.ModuleBase().Decimal())
	assert.Equal(t, "Game.exe", mr.Module().Name)

	final, err := mr.FinalPointer(process.MustParseHex("100"), "40", "8")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10208), final.Decimal())

	v, err := mr.Read(final, process.KindInt, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), v.Int)

	_, hops, err := mr.TracePointer(process.MustParseHex("100"), "40", "8")
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.Equal(t, uint64(0x400100), hops[0].Address.Decimal())
	assert.Equal(t, uint64(0x10040), hops[1].Address.Decimal())
}

func TestDefinitions(t *testing.T) {
	sys, p := newGame(t)

	mr, err := New(sys, "Game", WithWindowTitle("Game"))
	require.NoError(t, err)
	defer mr.Close()

	hp := chain.Definition{Name: "hp", Module: "Game.exe", Base: "100", Offsets: []string{"40", "8"}}
	v, err := mr.ReadDefinition(hp)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), v.Int)

	require.NoError(t, mr.WriteDefinition(hp, process.IntValue(9999)))
	got, err := p.Bytes(0x10208, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0F, 0x27, 0x00, 0x00}, got)

	speed := chain.Definition{Name: "speed", Base: "100", Offsets: []string{"40", "C"}, Type: "float"}
	v, err = mr.ReadDefinition(speed)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), v.Float)

	name := chain.Definition{Name: "name", Base: "100", Offsets: []string{"40", "10"}, Type: "string", Width: 16}
	v, err = mr.ReadDefinition(name)
	require.NoError(t, err)
	assert.Equal(t, "Arthas", v.Str)

	other := chain.Definition{Name: "x", Module: "client.dll", Base: "100", Offsets: []string{"0"}}
	_, err = mr.ReadDefinition(other)
	assert.Error(t, err)
}

func TestReadThroughBrokenChain(t *testing.T) {
	sys, p := newGame(t)
	require.NoError(t, p.PutUint32(0x10040, 0x7FFF0000))

	mr, err := New(sys, "Game.exe", WithWindowClass("GameClass"))
	require.NoError(t, err)
	defer mr.Close()

	_, err = mr.FinalPointer(process.MustParseHex("100"), "40", "8", "0")
	var broken *chain.ChainBrokenError
	require.True(t, errors.As(err, &broken))
	assert.Equal(t, 2, broken.Hop)
	assert.ErrorIs(t, err, process.ErrReadFailed)
}

func TestNewFailures(t *testing.T) {
	sys, _ := newGame(t)

	_, err := New(sys, "Game.exe")
	assert.ErrorIs(t, err, process.ErrNoSelector)

	_, err = New(sys, "Game.exe", WithWindowClass("Nope"))
	assert.ErrorIs(t, err, process.ErrProcessNotFound)

	_, err = New(sys, "d3d11.dll", WithWindowClass("GameClass"))
	assert.ErrorIs(t, err, process.ErrModuleNotFound)

	sys.Grant(gamePID, process.AccessVMRead)
	_, err = New(sys, "Game.exe", WithWindowClass("GameClass"))
	assert.ErrorIs(t, err, process.ErrAccessDenied)

	assert.Equal(t, 0, sys.OpenHandles())
	assert.Equal(t, 0, sys.OpenSnapshots())
}

func TestReadOnlyReader(t *testing.T) {
	sys, _ := newGame(t)
	sys.Grant(gamePID, process.AccessVMRead)

	mr, err := New(sys, "Game.exe", WithWindowClass("GameClass"), WithAccess(process.AccessVMRead))
	require.NoError(t, err)

	final, err := mr.FinalPointer(process.MustParseHex("100"), "40", "8")
	require.NoError(t, err)
	assert.ErrorIs(t, mr.Write(final, process.IntValue(1), 4), process.ErrAccessDenied)

	require.NoError(t, mr.Close())
	assert.Equal(t, 0, sys.OpenHandles())
}
