package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const defaultConfigPath = "./oracle.toml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reserve-oracle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "path to the oracle configuration (TOML or YAML)")
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	switch rest[0] {
	case "project":
		return runProjectCommand(*configPath, rest[1:], stdout, stderr)
	case "verify":
		return runVerifyCommand(*configPath, rest[1:], stdout, stderr)
	case "replay":
		return runReplayCommand(*configPath, rest[1:], stdout, stderr)
	case "journal":
		return runJournalCommand(*configPath, rest[1:], stdout, stderr)
	case "reserves":
		return runReservesCommand(*configPath, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return `Usage: reserve-oracle [-config path] <command> [arguments]

Commands:
  project <scenario.yaml>         project reserve and user state after one action
  verify <observation.yaml>       compare an observed action with its projection
  replay [-all] [report-id]       re-verify archived observations
  journal list [flags]            list journaled verification reports
  journal show <report-id>        print one journaled report
  reserves                        print the configured reserve strategies`
}
