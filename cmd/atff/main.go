// atff - ATFF compiler and loader
//
// Usage:
//
//	atff compile [options] <input...>   Compile authoring text to ATFF
//	atff load [options] <file>          Decode an ATFF file and print it
//	atff diff <a> <b>                   Diff two documents (text or ATFF)
//	atff version                        Print version info
//
// Links are never fetched unless enabled in the config file (links.enabled)
// or with --resolve-links, and then only through the configured command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/Neumenon/atff/atff"
	"github.com/Neumenon/atff/internal/config"
	"github.com/Neumenon/atff/internal/logging"
	"github.com/Neumenon/atff/link"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		code, quiet := exitCode(err)
		if !quiet {
			fmt.Fprintf(os.Stderr, "atff: %v\n", err)
		}
		os.Exit(code)
	}
}

// exitCode maps an error from run to a process status. Only an
// exitStatus from this package is silent; every other failure, including
// a failed link subprocess, is reported and exits 1.
func exitCode(err error) (code int, quiet bool) {
	var es exitStatus
	if errors.As(err, &es) {
		return es.ExitCode(), true
	}
	return 1, false
}

// exitStatus ends the process with a status and no message.
type exitStatus int

func (e exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitStatus) ExitCode() int { return int(e) }

var errUsage = errors.New("usage: atff <compile|load|diff|version> [options] [args]")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "compile":
		return cmdCompile(ctx, rest, stdout, stderr)
	case "load":
		return cmdLoad(ctx, rest, stdin, stdout, stderr)
	case "diff":
		return cmdDiff(ctx, rest, stdout, stderr)
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "atff %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `atff - ATFF compiler and loader

Usage:
  atff compile [options] <input...>   Compile authoring text to ATFF (globs and ** allowed)
  atff load [options] <file|->        Decode an ATFF file and print it
  atff diff <a> <b>                   Diff two documents (text or ATFF)
  atff version                        Print version info

Compile options:
  -o, --into PATH       Output path (default: input with .atff extension, - for stdout)
  --compress NAME       none, zstd or lz4 (default from config)
  --resolve-links       Fetch and run links through links.command

Load options:
  --format NAME         text, json, yaml or cbor (default: text)
  --digest HEX          Refuse to decode unless the file has this blake3 digest
  -q, --query EXPR      Print the results of a jq expression over the JSON form
  --resolve-links       Fetch and run links through links.command

Global options:
  --config PATH         YAML config file (default: $ATFF_CONFIG)
  --log-level LEVEL     debug, info, warn or error
  --log-json            Emit JSON log records

Examples:
  atff compile server.aap
  # Written at path server.atff

  atff compile 'conf/**/*.aap' --compress zstd
  atff load --format json server.atff
  atff load -q '.sections[].name' server.atff
`)
}

// globals holds flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newFlagSet(name string, g *globals, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("atff "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	fs.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&g.logJSON, "log-json", false, "emit JSON log records")
	return fs
}

// parseFlags parses args, treating -h/--help as success.
func parseFlags(fs *pflag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// setup loads the config and builds the logger once flags are parsed.
func (g *globals) setup(stderr io.Writer) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(config.Path(g.configPath))
	if err != nil {
		return nil, nil, err
	}

	levelName := cfg.Log.Level
	if g.logLevel != "" {
		levelName = g.logLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Output = stderr
	lc.JSON = cfg.Log.JSON || g.logJSON
	lc.AddSource = level <= logging.LevelDebug
	return cfg, logging.New(lc), nil
}

// resolver returns the link resolver for this invocation. Resolution
// stays disabled unless the config or the flag turns it on.
func resolver(cfg *config.Config, enable bool, logger *logging.Logger, stderr io.Writer) (atff.Resolver, error) {
	l := logger.WithComponent("link").Logger
	if !enable && !cfg.Links.Enabled {
		return link.Disabled{Logger: l}, nil
	}
	if len(cfg.Links.Command) == 0 {
		return nil, errors.New("link resolution requested but links.command is not configured")
	}
	exec := &link.CommandExecutor{
		Command: cfg.Links.Command,
		Env:     cfg.Links.Env,
		Stdout:  stderr,
		Stderr:  stderr,
	}
	return link.NewRemote(cfg.Policy(), exec, l), nil
}
