package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"winbot/chain"
	"winbot/hexdump"
	"winbot/memreader"
	"winbot/process"
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
	fs := flag.NewFlagSet("chain_read", flag.ContinueOnError)
	classFlag := fs.String("class", "", "Window class of the target")
	titleFlag := fs.String("title", "", "Window title of the target")
	moduleFlag := fs.String("module", "", "Module the base offset is relative to (e.g. Game.exe)")
	baseFlag := fs.String("base", "", "Base offset in hex, relative to the module")
	offsetsFlag := fs.String("offsets", "", "Comma separated hex offsets (e.g. '40,F08')")
	typeFlag := fs.String("type", "int", "Value type: int, float or str")
	widthFlag := fs.Uint("width", 4, "Value width in bytes")
	chainsFlag := fs.String("chains", "", "YAML chain file")
	nameFlag := fs.String("name", "", "Chain to read from --chains")
	writeFlag := fs.String("write", "", "Write this value instead of only reading")
	dumpFlag := fs.Uint("dump", 0, "Hexdump this many bytes at the resolved address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *classFlag == "" && *titleFlag == "" {
		fs.Usage()
		return fmt.Errorf("%w: --class or --title is required", errUsage)
	}

	def, err := definitionFromFlags(*chainsFlag, *nameFlag, *moduleFlag, *baseFlag, *offsetsFlag, *typeFlag, *widthFlag)
	if err != nil {
		fs.Usage()
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	base, err := process.ParseHex(def.Base)
	if err != nil {
		return fmt.Errorf("parsing base: %w", err)
	}
	kind, err := def.Kind()
	if err != nil {
		return fmt.Errorf("parsing type: %w", err)
	}

	mr, err := memreader.New(sys, def.Module,
		memreader.WithWindowClass(*classFlag),
		memreader.WithWindowTitle(*titleFlag),
	)
	if err != nil {
		return fmt.Errorf("attaching: %w", err)
	}
	defer mr.Close()

	fmt.Printf("Attached to process %d, %s\n", mr.PID(), mr.Module())

	addr, hops, err := mr.TracePointer(base, def.Offsets...)
	for _, hop := range hops {
		fmt.Println(hop)
	}
	if err != nil {
		var broken *chain.ChainBrokenError
		if errors.As(err, &broken) {
			fmt.Printf("Chain %s broken at hop %d\n", def.Name, broken.Hop)
		}
		return fmt.Errorf("resolving: %w", err)
	}
	fmt.Printf("%s => %s\n", def.Name, addr)

	if *writeFlag != "" {
		v, err := process.ParseValue(kind, *writeFlag)
		if err != nil {
			return err
		}
		if err := mr.Write(addr, v, def.ByteWidth()); err != nil {
			return fmt.Errorf("writing: %w", err)
		}
		fmt.Printf("Wrote %s\n", v)
	}

	v, err := mr.Read(addr, kind, def.ByteWidth())
	switch {
	case errors.Is(err, process.ErrReadFailed):
		fmt.Println("Value not available:", err)
	case err != nil:
		return fmt.Errorf("reading: %w", err)
	default:
		fmt.Printf("Value: %s\n", v)
	}

	if *dumpFlag > 0 {
		data, err := mr.Accessor().ReadBytes(addr, process.ProcessMemorySize(*dumpFlag))
		if err != nil {
			return fmt.Errorf("reading dump: %w", err)
		}
		options := hexdump.DefaultOptions()
		options.HighlightLen = int(def.ByteWidth())
		fmt.Print(hexdump.Dump(data, addr, options))
	}
	return nil
}

func definitionFromFlags(chains, name, module, base, offsets, typ string, width uint) (chain.Definition, error) {
	if chains != "" {
		f, err := chain.LoadFile(chains)
		if err != nil {
			return chain.Definition{}, err
		}
		d, ok := f.Lookup(name)
		if !ok {
			return chain.Definition{}, fmt.Errorf("no chain %q in %s", name, chains)
		}
		return d, nil
	}

	d := chain.Definition{
		Name:    "cli",
		Module:  module,
		Base:    base,
		Offsets: strings.FieldsFunc(offsets, func(r rune) bool { return r == ',' || r == ' ' }),
		Type:    typ,
		Width:   width,
	}
	if d.Module == "" {
		return d, fmt.Errorf("--module is required")
	}
	return d, d.Validate()
}

