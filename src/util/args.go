package util

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xyproto/env/v2"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the fully resolved compiler configuration. Flags override the
// optional caesium.toml project file, which overrides environment defaults.
type Options struct {
	Src         string // Path to source file.
	Out         string // Path to output assembly file.
	Threads     int    // Worker count for per-function parallel compilation.
	Verbose     bool   // Set true if compiler should log progress to stdout.
	TokenStream bool   // Set true if compiler should output token stream and exit.
	LLVM        bool   // Set true if compiler should lower through the LLVM framework instead of the native backend.
	Target      int    // Output target architecture.
	Assemble    bool   // Set true if the emitted assembly should be handed to the external assembler.
	Nasm        string // Path to the external assembler executable.
	Format      string // Object format passed to the external assembler.
	Config      string // Path to an optional caesium.toml project file.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Maximum threads allowed executing in parallel.
const appVersion = "caesium compiler 1.0"

// Target machine architectures. Only Amd64 is implemented; the others are
// recognised so they can be reported as unsupported rather than unknown.
const (
	UnknownArch = iota
	Amd64
	Aarch64
	Riscv64
)

// ---------------------
// ----- functions -----
// ---------------------

// defaultFormat returns the object format the external assembler should
// produce when none is configured, based on the host operating system.
func defaultFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "macho64"
	case "windows":
		return "win64"
	default:
		return "elf64"
	}
}

// ParseArgs parses command line arguments on top of environment defaults.
func ParseArgs() (Options, error) {
	opt := Options{
		Threads: env.Int("CAESIUM_THREADS", 1),
		Nasm:    env.Str("CAESIUM_NASM", "nasm"),
		Format:  env.Str("CAESIUM_FORMAT", defaultFormat()),
		Target:  Amd64,
	}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args)-1; i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-ll":
			// Use LLVM IR and LLVM code generator.
			opt.LLVM = true
		case "-aot":
			// Hand the emitted assembly to the external assembler.
			opt.Assemble = true
		case "-o", "-t", "-c", "-nasm", "-f":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected argument for flag %s, got new flag %s", args[i1], args[i1+1])
			}
			switch args[i1] {
			case "-o":
				// Output file.
				opt.Out = args[i1+1]
			case "-c":
				// Project configuration file.
				opt.Config = args[i1+1]
			case "-nasm":
				// External assembler executable.
				opt.Nasm = args[i1+1]
			case "-f":
				// External assembler object format.
				opt.Format = args[i1+1]
			case "-t":
				// Thread count.
				if t, err := strconv.Atoi(args[i1+1]); err == nil {
					if t > 0 && t <= maxThreads {
						opt.Threads = t
					} else {
						return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
					}
				} else {
					return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
				}
			}
			i1++
		case "-arch":
			// Output architecture.
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			switch args[i1+1] {
			case "amd64", "x86_64":
				opt.Target = Amd64
			case "aarch64":
				opt.Target = Aarch64
			case "riscv64":
				opt.Target = Riscv64
			default:
				return opt, fmt.Errorf("unexpected architecture identifier: %s", args[i1+1])
			}
			i1++
		case "-ts":
			// Output token stream.
			opt.TokenStream = true
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			// Verbose mode.
			opt.Verbose = true
		default:
			return opt, fmt.Errorf("unexpected flag: %s", args[i1])
		}
	}
	if len(args) > 0 {
		opt.Src = args[len(args)-1]
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-aot\tAssemble the emitted file with the external assembler.")
	_, _ = fmt.Fprintln(w, "-arch\tOutput architecture. Only 'amd64' is implemented.")
	_, _ = fmt.Fprintln(w, "-c\tPath to a caesium.toml project file.")
	_, _ = fmt.Fprintln(w, "-f\tObject format for the external assembler, e.g. 'elf64' or 'win64'.")
	_, _ = fmt.Fprintln(w, "-ll\tUse LLVM to optimise and generate output code.")
	_, _ = fmt.Fprintln(w, "-nasm\tPath to the external assembler executable.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file.")
	_, _ = fmt.Fprintf(w, "-t\tNumber of threads to run in parallel. Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-ts\tOutput the tokens of the source code and exit.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: log compiler progress to stdout.")
	_ = w.Flush()
}
