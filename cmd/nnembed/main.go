// Command nnembed encodes a trained feed-forward network file into a
// constraint model and prints what was built.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/predopt/nnembed"
	"github.com/predopt/nnembed/pkg/inspector"
	"github.com/predopt/nnembed/pkg/mip"
	"github.com/predopt/nnembed/pkg/sequential"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(os.Args[2:], os.Stdout)
	case "inspect":
		err = runInspect(os.Args[2:], os.Stdout)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runEncode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	rows := fs.Int("rows", 1, "Number of input rows (samples) to encode.")
	dump := fs.Bool("dump", false, "Print every variable and constraint.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		fs.Usage()
		return fmt.Errorf("a network file is required")
	}

	net, err := sequential.Load(path)
	if err != nil {
		return err
	}
	slog.Info("loaded network", "path", path, "layers", len(net.Layers))

	model := mip.NewStore()
	input, err := model.AddVarArray(mip.Shape{*rows, net.InputSize()}, -mip.Infinity, mip.Infinity, "input")
	if err != nil {
		return err
	}
	output, err := model.AddVarArray(mip.Shape{*rows, net.OutputSize()}, -mip.Infinity, mip.Infinity, "output")
	if err != nil {
		return err
	}
	if err := model.Update(); err != nil {
		return err
	}
	if _, err := nnembed.AddNetwork(model, net, "net", input, output); err != nil {
		return err
	}

	inspector.Summarize(model, out)
	if *dump {
		fmt.Fprintln(out)
		model.Write(out)
	}
	return nil
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		fs.Usage()
		return fmt.Errorf("a network file is required")
	}

	net, err := sequential.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Network %s: %d layers, input width %d, output width %d\n\n",
		path, len(net.Layers), net.InputSize(), net.OutputSize())
	return inspector.Layers(net, out)
}

func printUsage() {
	fmt.Println("Usage: nnembed <command> [options] <network.json>")
	fmt.Println("\nCommands:")
	fmt.Println("  encode    Build the constraint model for a network and print a summary.")
	fmt.Println("            -rows N   number of input rows to encode (default 1)")
	fmt.Println("            -dump     print every variable and constraint")
	fmt.Println("  inspect   Print the per-layer structure of a network file.")
}
