package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"winbot/chain"
	"winbot/memreader"
	"winbot/process"
	"winbot/search"

	"gopkg.in/yaml.v2"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(getSystem(), os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run returns instead of exiting so the deferred Close releases the process handle on every path
func run(sys process.System, args []string) error {
	fs := flag.NewFlagSet("chain_search", flag.ContinueOnError)
	classFlag := fs.String("class", "", "Window class of the target")
	titleFlag := fs.String("title", "", "Window title of the target")
	moduleFlag := fs.String("module", "", "Module the base offset is relative to (e.g. Game.exe)")
	baseFlag := fs.String("base", "", "Base offset in hex, relative to the module")
	typeFlag := fs.String("type", "int", "Value type: int, float or str")
	widthFlag := fs.Uint("width", 4, "Value width in bytes")
	valueFlag := fs.String("value", "", "Value to search for")
	depthFlag := fs.Int("depth", 3, "Maximum number of offsets in a chain")
	structFlag := fs.Uint("struct", 256, "Bytes scanned behind every pointer")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *classFlag == "" && *titleFlag == "" {
		fs.Usage()
		return fmt.Errorf("%w: --class or --title is required", errUsage)
	}
	if *moduleFlag == "" || *valueFlag == "" {
		fs.Usage()
		return fmt.Errorf("%w: --module and --value are required", errUsage)
	}

	baseOffset, err := process.ParseHex(*baseFlag)
	if err != nil {
		return fmt.Errorf("parsing base: %w", err)
	}
	kind, err := process.ParseValueKind(*typeFlag)
	if err != nil {
		return err
	}
	value, err := process.ParseValue(kind, *valueFlag)
	if err != nil {
		return err
	}

	mr, err := memreader.New(sys, *moduleFlag,
		memreader.WithWindowClass(*classFlag),
		memreader.WithWindowTitle(*titleFlag),
		memreader.WithAccess(process.AccessVMRead),
	)
	if err != nil {
		return fmt.Errorf("attaching: %w", err)
	}
	defer mr.Close()

	fmt.Printf("Attached to process %d, %s\n", mr.PID(), mr.Module())
	fmt.Printf("Searching for %s\n", value)

	results, err := search.Search(mr.Accessor(), mr.ModuleBase().Add(baseOffset),
		search.WithValue(value, process.ProcessMemorySize(*widthFlag)),
		search.WithMaxDepth(*depthFlag),
		search.WithMaxStructSize(*structFlag),
	)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	fmt.Printf("Found %d chains\n", len(results))

	// print a chain file ready for chain_read --chains
	var file chain.File
	for i, r := range results {
		file.Chains = append(file.Chains, chain.Definition{
			Name:    fmt.Sprintf("found_%d", i),
			Module:  mr.Module().Name,
			Base:    baseOffset.Hex(),
			Offsets: r.HexOffsets(),
			Type:    kind.String(),
			Width:   *widthFlag,
		})
	}
	out, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
