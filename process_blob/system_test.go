package process_blob

import (
	"testing"

	"winbot/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteEnforcesRights(t *testing.T) {
	sys := New()
	p := sys.AddProcess(7)
	p.Map(0x1000, 0x100, "rw-p")
	require.NoError(t, p.PutUint32(0x1010, 0xCAFEBABE))

	ro, err := sys.OpenProcess(process.AccessVMRead, false, 7)
	require.NoError(t, err)

	data, err := sys.ReadMemory(ro, process.FromDecimal(0x1010), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBE, 0xBA, 0xFE, 0xCA}, data)

	err = sys.WriteMemory(ro, process.FromDecimal(0x1010), []byte{1})
	assert.ErrorIs(t, err, process.ErrAccessDenied)

	wo, err := sys.OpenProcess(process.AccessVMWrite|process.AccessVMOperation, false, 7)
	require.NoError(t, err)
	_, err = sys.ReadMemory(wo, process.FromDecimal(0x1010), 4)
	assert.ErrorIs(t, err, process.ErrAccessDenied)
	require.NoError(t, sys.WriteMemory(wo, process.FromDecimal(0x1010), []byte{1}))

	assert.Equal(t, 2, sys.OpenHandles())
	require.NoError(t, sys.CloseHandle(ro))
	require.NoError(t, sys.CloseHandle(wo))
	assert.Error(t, sys.CloseHandle(wo))
	assert.Equal(t, 0, sys.OpenHandles())

	_, err = sys.ReadMemory(ro, process.FromDecimal(0x1010), 4)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

func TestGrantLimitsOpen(t *testing.T) {
	sys := New()
	sys.AddProcess(7)
	sys.Grant(7, process.AccessVMRead)

	_, err := sys.OpenProcess(process.AccessVMRead|process.AccessVMWrite, false, 7)
	assert.ErrorIs(t, err, process.ErrAccessDenied)

	_, err = sys.OpenProcess(process.AccessVMRead, false, 8)
	assert.Error(t, err)
}

func TestRegionPermissionsAndBounds(t *testing.T) {
	sys := New()
	p := sys.AddProcess(7)
	p.Map(0x1000, 0x10, "r--p")
	p.Map(0x2000, 0x10, "---p")

	h, err := sys.OpenProcess(process.AccessVMRead|process.AccessVMWrite|process.AccessVMOperation, false, 7)
	require.NoError(t, err)

	assert.Error(t, sys.WriteMemory(h, process.FromDecimal(0x1000), []byte{1}))

	_, err = sys.ReadMemory(h, process.FromDecimal(0x2000), 1)
	assert.Error(t, err)

	_, err = sys.ReadMemory(h, process.FromDecimal(0x100C), 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	// Put ignores permissions
	require.NoError(t, p.Put(0x1000, []byte("hi")))
	got, err := p.Bytes(0x1000, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}

func TestSnapshotAndWindows(t *testing.T) {
	sys := New()
	sys.AddProcess(7)
	sys.AddModule(7, "a.dll", 0x1000, 0x100)
	sys.AddModule(7, "b.dll", 0x2000, 0x100)
	hwnd := sys.AddWindow("Cls", "Title", 7)

	snap, err := sys.SnapshotModules(7)
	require.NoError(t, err)
	assert.Equal(t, 1, sys.OpenSnapshots())

	var names []string
	for m, ok := snap.First(); ok; m, ok = snap.Next() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a.dll", "b.dll"}, names)

	require.NoError(t, snap.Close())
	assert.ErrorIs(t, snap.Close(), ErrSnapshotClosed)
	assert.Equal(t, 0, sys.OpenSnapshots())

	got, err := sys.FindWindow("", "Title")
	require.NoError(t, err)
	assert.Equal(t, hwnd, got)

	_, err = sys.FindWindow("Other", "")
	assert.ErrorIs(t, err, process.ErrProcessNotFound)

	pid, err := sys.WindowOwnerProcessID(hwnd)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(7), pid)
}
