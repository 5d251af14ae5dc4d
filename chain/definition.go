package chain

import (
	"fmt"
	"os"

	"winbot/process"

	"gopkg.in/yaml.v2"
)

// Definition names a pointer chain relative to a module, as stored in a chain file:
//
//	chains:
//	  - name: player_hp
//	    module: Game.exe
//	    base: "00ABC123"
//	    offsets: ["40", "F08"]
//	    type: int
//	    width: 4
type Definition struct {
	Name    string   `yaml:"name"`
	Module  string   `yaml:"module"`
	Base    string   `yaml:"base"`
	Offsets []string `yaml:"offsets"`
	Type    string   `yaml:"type"`
	Width   uint     `yaml:"width"`
}

type File struct {
	Chains []Definition `yaml:"chains"`
}

// Kind returns the value kind named by Type, defaulting to a 4-byte int
func (d Definition) Kind() (process.ValueKind, error) {
	if d.Type == "" {
		return process.KindInt, nil
	}
	return process.ParseValueKind(d.Type)
}

// ByteWidth returns Width, defaulting to 4
func (d Definition) ByteWidth() process.ProcessMemorySize {
	if d.Width == 0 {
		return 4
	}
	return process.ProcessMemorySize(d.Width)
}

// Validate checks everything that can be checked without a live process
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("chain definition without name")
	}
	if _, err := process.ParseHex(d.Base); err != nil {
		return fmt.Errorf("chain %s: base: %w", d.Name, err)
	}
	if _, err := ParseOffsets(d.Offsets); err != nil {
		return fmt.Errorf("chain %s: %w", d.Name, err)
	}
	kind, err := d.Kind()
	if err != nil {
		return fmt.Errorf("chain %s: %w", d.Name, err)
	}
	if err := kind.CheckWidth(d.ByteWidth()); err != nil {
		return fmt.Errorf("chain %s: %w", d.Name, err)
	}
	return nil
}

// ParseFile decodes and validates a chain file
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse chain file: %w", err)
	}

	seen := make(map[string]bool)
	for _, d := range f.Chains {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("chain %s defined twice", d.Name)
		}
		seen[d.Name] = true
	}
	return &f, nil
}

// LoadFile reads and parses a chain file from disk
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(data)
}

// Lookup returns the definition called name
func (f *File) Lookup(name string) (Definition, bool) {
	for _, d := range f.Chains {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
