// Command dotnetserde decodes NRBF and Data Contract XML payloads from the
// command line: one subcommand per wire format plus an inspect mode that
// pretty-prints the resulting CLI value tree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/spf13/pflag"

	"github.com/moriyoshi/dotnetserde/internal/config"
	"github.com/moriyoshi/dotnetserde/internal/diag"
)

var (
	flagDebug  = pflag.Bool("debug", false, "enable verbose decode tracing and structural dumps")
	flagConfig = pflag.String("config", "", "path to a YAML DecodeOptions file")
)

func loadOptions() config.DecodeOptions {
	if *flagConfig == "" {
		opts := config.Default()
		opts.Debug = *flagDebug
		return opts
	}
	opts, err := config.LoadFile(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dotnetserde: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	if *flagDebug {
		opts.Debug = true
	}
	return opts
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&decodeNRBFCmd{}, "")
	subcommands.Register(&decodeDataContractCmd{}, "")
	subcommands.Register(&inspectCmd{}, "")

	pflag.Parse()
	opts := loadOptions()
	if opts.Debug {
		diag.SetVerbosity(2)
	}

	// subcommands dispatches against the stdlib flag package; the
	// remaining non-pflag arguments (subcommand name and its own flags)
	// are what's left in os.Args after pflag consumed the global flags.
	flag.CommandLine.Parse(pflag.Args())

	ctx := context.WithValue(context.Background(), optionsContextKey{}, opts)
	os.Exit(int(subcommands.Execute(ctx)))
}

type optionsContextKey struct{}

func optionsFromContext(ctx context.Context) config.DecodeOptions {
	if opts, ok := ctx.Value(optionsContextKey{}).(config.DecodeOptions); ok {
		return opts
	}
	return config.Default()
}
