package process_blob

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"winbot/process"
	"winbot/process/memory_map"
)

// ProcessBlob is the address space of one simulated process: a set of mapped regions
// with permissions, each backed by its own byte slice.
type ProcessBlob struct {
	pid     process.ProcessID
	mu      sync.Mutex
	regions []memory_map.MemoryMapItem
	blobs   map[uint64][]byte // region start -> data
}

func newProcessBlob(pid process.ProcessID) *ProcessBlob {
	return &ProcessBlob{
		pid:   pid,
		blobs: make(map[uint64][]byte),
	}
}

func (p *ProcessBlob) PID() process.ProcessID {
	return p.pid
}

// Map adds a zero-filled region. perms uses the /proc/[pid]/maps notation, e.g. "rw-p".
func (p *ProcessBlob) Map(addr uint64, size uint, perms string) *ProcessBlob {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.regions = append(p.regions, memory_map.MemoryMapItem{Address: addr, Size: size, Perms: perms})
	memory_map.Sort(p.regions)
	p.blobs[addr] = make([]byte, size)
	return p
}

// Put copies data into mapped memory regardless of region permissions
func (p *ProcessBlob) Put(addr uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, err := p.slice(addr, uint(len(data)))
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

// PutUint32 stores v little-endian at addr
func (p *ProcessBlob) PutUint32(addr uint64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return p.Put(addr, buf[:])
}

// PutInt32 stores v little-endian at addr
func (p *ProcessBlob) PutInt32(addr uint64, v int32) error {
	return p.PutUint32(addr, uint32(v))
}

// PutFloat32 stores v as binary32 at addr
func (p *ProcessBlob) PutFloat32(addr uint64, v float32) error {
	return p.PutUint32(addr, math.Float32bits(v))
}

// Bytes returns a copy of size bytes at addr regardless of region permissions
func (p *ProcessBlob) Bytes(addr uint64, size uint) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, err := p.slice(addr, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, buf)
	return out, nil
}

// Regions returns a copy of the memory map
func (p *ProcessBlob) Regions() []memory_map.MemoryMapItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]memory_map.MemoryMapItem, len(p.regions))
	copy(result, p.regions)
	return result
}

func (p *ProcessBlob) read(addr uint64, size uint) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	region := memory_map.Covers(addr, size, p.regions)
	if region == nil {
		return nil, fmt.Errorf("%w: 0x%X (+%d)", process.ErrAddressNotMapped, addr, size)
	}
	if !region.IsReadable() {
		return nil, fmt.Errorf("region at 0x%X is not readable", region.Address)
	}

	buf, err := p.slice(addr, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, buf)
	return out, nil
}

func (p *ProcessBlob) write(addr uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	region := memory_map.Covers(addr, uint(len(data)), p.regions)
	if region == nil {
		return fmt.Errorf("%w: 0x%X (+%d)", process.ErrAddressNotMapped, addr, len(data))
	}
	if !region.IsWritable() {
		return fmt.Errorf("memory region at %x is not writable", region.Address)
	}

	buf, err := p.slice(addr, uint(len(data)))
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

// slice returns the backing bytes for [addr, addr+size); the caller holds p.mu
func (p *ProcessBlob) slice(addr uint64, size uint) ([]byte, error) {
	region := memory_map.Covers(addr, size, p.regions)
	if region == nil {
		return nil, fmt.Errorf("%w: 0x%X (+%d)", process.ErrAddressNotMapped, addr, size)
	}
	offset := addr - region.Address
	data := p.blobs[region.Address]
	return data[offset : offset+uint64(size)], nil
}
