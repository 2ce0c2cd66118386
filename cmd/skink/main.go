// Skink CLI - compiles and runs Skink programs with a console host.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/skink"
	"github.com/chazu/skink/manifest"
	"github.com/chazu/skink/security"
	"github.com/chazu/skink/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	disasm := flag.Bool("disasm", false, "Print the disassembly after loading")
	listing := flag.Bool("listing", false, "Print the compiled code listing and exit")
	dumpState := flag.Bool("dump-state", false, "Dump VM state after the program finishes")
	manifestPath := flag.String("manifest", "", "Path to skink.toml (default: search upward from the script)")
	noRun := flag.Bool("no-run", false, "Compile and verify only")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: skink [options] program.sk\n\n")
		fmt.Fprintf(os.Stderr, "Compiles the program and runs it on the console host.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  skink blink.sk             # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  skink -listing blink.sk    # Show string table and bytecode\n")
		fmt.Fprintf(os.Stderr, "  skink -disasm blink.sk     # Disassemble, then run\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fail("reading %s: %v", path, err)
	}

	limits := security.DefaultLimits()
	if err := applyManifest(*manifestPath, path, limits); err != nil {
		fail("%v", err)
	}

	host := vm.NewConsoleHost(os.Stdin, os.Stdout)
	interp := skink.NewWithLimits(host, limits)

	diags := interp.Compile(string(source))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, colorize(d.String(), d.Warning))
	}

	if *listing {
		fmt.Print(interp.PrintCompiledCode())
		return
	}

	if err := interp.VM().LoadProgram(interp.Program()); err != nil {
		fail("%v", err)
	}

	if *disasm {
		fmt.Print(interp.Disassemble())
	}
	if *noRun {
		return
	}

	interp.VM().Run()

	for _, d := range interp.VM().Diagnostics() {
		fmt.Fprintln(os.Stderr, colorize("ERROR: "+d, false))
	}
	if *dumpState {
		fmt.Print(interp.DumpState())
	}
}

// applyManifest loads an explicit manifest, or searches upward from the
// script's directory when none was given. No manifest is not an error.
func applyManifest(explicit, scriptPath string, limits *security.Limits) error {
	path := explicit
	if path == "" {
		dir, err := filepath.Abs(filepath.Dir(scriptPath))
		if err != nil {
			return err
		}
		path = manifest.Find(dir)
		if path == "" {
			return nil
		}
	}
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	return m.Apply(limits)
}

// colorize wraps a diagnostic in ANSI color when stderr is a terminal.
func colorize(s string, warning bool) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return s
	}
	code := "31" // red
	if warning {
		code = "33" // yellow
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
