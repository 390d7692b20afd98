package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"caesium/src/aot"
	"caesium/src/backend"
	"caesium/src/frontend"
	"caesium/src/ir"
	"caesium/src/ir/llvm"
	"caesium/src/util"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("caesium")

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	// Merge in the project configuration file, if one was given. Command line
	// flags win over the file, the file wins over environment defaults.
	if len(opt.Config) > 0 {
		cfg, err := util.LoadConfig(opt.Config)
		if err != nil {
			fmt.Printf("Configuration error: %s\n", err)
			os.Exit(1)
		}
		if err := cfg.Apply(&opt); err != nil {
			fmt.Printf("Configuration error: %s\n", err)
			os.Exit(1)
		}
	}

	if opt.Verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	// Read source code.
	src, err := util.ReadSource(opt)
	if err != nil {
		fmt.Printf("Could not read source code: %s\n", err)
		os.Exit(1)
	}

	// If -ts flag was passed: output token stream and exit.
	if opt.TokenStream {
		util.ListenWrite(1, nil)
		err := frontend.TokenStream(src)
		util.Close()
		if err != nil {
			fmt.Printf("Syntax error: %s\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Generate syntax tree by lexing and parsing source code.
	if err := frontend.Parse(src); err != nil {
		fmt.Printf("Parse error: %s\n", err)
		os.Exit(1)
	}
	log.Infof("parsed %d functions", len(ir.Root.Children))

	// Generate symbol table.
	if err := ir.GenerateSymTab(); err != nil {
		fmt.Printf("Source code error: %s\n", err)
		os.Exit(1)
	}

	// Validate source code.
	if err := ir.ValidateTree(opt); err != nil {
		fmt.Printf("Source code error: %s\n", err)
		os.Exit(1)
	}

	if opt.LLVM {
		if err := llvm.GenLLVM(opt, ir.Root); err != nil {
			fmt.Printf("Error reported by LLVM: %s\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Initiate output writer.
	if len(opt.Out) > 0 {
		// Attempt to open output file. Create new file if necessary.
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}(f)
		util.ListenWrite(opt.Threads, f)
	} else {
		// Write results to stdout.
		util.ListenWrite(opt.Threads, nil)
	}

	// Generate assembler.
	if err := backend.GenerateAssembler(opt); err != nil {
		fmt.Printf("Code generation error: %s\n", err)
		util.Close()
		os.Exit(1)
	}

	// Stop the output writer.
	util.Close()

	// Optionally hand the emitted assembly to the external assembler.
	if opt.Assemble {
		if len(opt.Out) == 0 {
			fmt.Println("Assembler error: -aot requires an output file, pass -o")
			os.Exit(1)
		}
		tc, err := aot.New(opt)
		if err != nil {
			fmt.Printf("Assembler error: %s\n", err)
			os.Exit(1)
		}
		if err := tc.Assemble(context.Background(), opt.Out, ""); err != nil {
			fmt.Printf("Assembler error: %s\n", err)
			os.Exit(1)
		}
	}
}
