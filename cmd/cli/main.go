package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"gridopt/internal/build"
	"gridopt/internal/config"
	"gridopt/internal/lp"
	"gridopt/internal/network"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		cmdBuild(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli build --network examples/network.yaml --out results/model.lp")
	fmt.Println("  cli validate --network examples/network.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - build writes the model in CPLEX LP format for any external solver")
	fmt.Println("  - validate checks the network description without building")
}

func cmdBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	netPath := fs.String("network", "", "Path to YAML network description")
	outPath := fs.String("out", "results/model.lp", "Output LP path")
	start := fs.Int("start", 0, "First snapshot of the build window")
	end := fs.Int("end", 0, "Snapshot after the build window (0=full horizon)")
	linearized := fs.Bool("linearized-uc", false, "Relax unit commitment to continuous variables")
	tangents := fs.Int("loss-tangents", 0, "Tangents for the transmission-loss approximation (0=off)")
	verbose := fs.Bool("v", false, "Verbose logging")
	_ = fs.Parse(args)

	if *netPath == "" {
		fmt.Println("--network is required")
		os.Exit(2)
	}

	logger := newLogger(*verbose)
	defer logger.Sync()

	cfg, err := config.Load(*netPath)
	if err != nil {
		fatal(err)
	}
	n, err := cfg.Network()
	if err != nil {
		fatal(err)
	}

	ctx := build.Context{
		LinearizedUC: *linearized || cfg.Options.LinearizedUC,
		Tangents:     pickInt(*tangents, cfg.Options.LossTangents),
		Start:        pickInt(*start, cfg.Options.WindowStart),
		End:          pickInt(*end, cfg.Options.WindowEnd),
		Log:          logger,
	}
	m, err := build.Build(n, ctx)
	if err != nil {
		fatal(err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fatal(err)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		fatal(err)
	}
	defer f.Close()
	if err := lp.WriteLP(f, m); err != nil {
		fatal(err)
	}

	fmt.Printf("Wrote %s: %d variables, %d constraint rows\n", *outPath, m.NumVars(), m.NumCons())
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	netPath := fs.String("network", "", "Path to YAML network description")
	_ = fs.Parse(args)

	if *netPath == "" {
		fmt.Println("--network is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*netPath)
	if err != nil {
		fatal(err)
	}
	n, err := cfg.Network()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("%-14s %s\n", "kind", "assets")
	for _, k := range network.AllKinds {
		if t := n.Table(k); !t.Empty() {
			fmt.Printf("%-14s %d\n", k, t.Len())
		}
	}
	fmt.Printf("%d snapshots", n.Snapshots().Len())
	if periods := n.Snapshots().Periods(); periods != nil {
		fmt.Printf(" over %d investment periods", len(periods))
	}
	fmt.Println()
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fatal(err)
	}
	return logger
}

// pickInt prefers the flag value, falling back to the config.
func pickInt(flagVal, cfgVal int) int {
	if flagVal != 0 {
		return flagVal
	}
	return cfgVal
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
