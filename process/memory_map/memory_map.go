package memory_map

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"winbot/process"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string // Backing file, empty for anonymous mappings
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

// Sort orders the map by address, which Find requires
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Find returns the region containing addr. memoryMap must be sorted by address.
func Find(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// Covers reports whether [addr, addr+size) lies inside a single region of a sorted map
func Covers(addr uint64, size uint, memoryMap []MemoryMapItem) *MemoryMapItem {
	item := Find(addr, memoryMap)
	if item == nil {
		return nil
	}
	end := addr + uint64(size)
	if end < addr || end > item.End() {
		return nil
	}
	return item
}

// Modules folds file-backed regions into one ModuleInfo per file, in address order.
// The base is the lowest mapping of the file and the size spans up to its highest mapping.
func Modules(memoryMap []MemoryMapItem) []process.ModuleInfo {
	var out []process.ModuleInfo
	index := make(map[string]int)

	for _, item := range memoryMap {
		if item.Path == "" || strings.HasPrefix(item.Path, "[") {
			continue
		}

		i, ok := index[item.Path]
		if !ok {
			index[item.Path] = len(out)
			out = append(out, process.ModuleInfo{
				Name: filepath.Base(item.Path),
				Path: item.Path,
				Base: process.FromDecimal(item.Address),
				Size: uint32(item.Size),
			})
			continue
		}

		m := &out[i]
		if item.Address < m.Base.Decimal() {
			m.Size += uint32(m.Base.Decimal() - item.Address)
			m.Base = process.FromDecimal(item.Address)
		}
		if end := item.End(); end > m.Base.Decimal()+uint64(m.Size) {
			m.Size = uint32(end - m.Base.Decimal())
		}
	}

	return out
}
