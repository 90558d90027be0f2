package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/term"

	"github.com/Neumenon/atff/atff"
	"github.com/Neumenon/atff/export"
	"github.com/Neumenon/atff/wire"
)

// cmdCompile: authoring text -> ATFF
func cmdCompile(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	var into, compress string
	var resolveLinks bool

	fs := newFlagSet("compile", &g, stderr)
	fs.StringVarP(&into, "into", "o", "", "output path (- for stdout)")
	fs.StringVar(&compress, "compress", "", "compression: none, zstd, lz4")
	fs.BoolVar(&resolveLinks, "resolve-links", false, "fetch and run links")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	inputs, err := expandInputs(fs.Args())
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("compile: expected at least one input file")
	}
	if into != "" && len(inputs) > 1 {
		return fmt.Errorf("compile: --into needs a single input, got %d", len(inputs))
	}

	cfg, logger, err := g.setup(stderr)
	if err != nil {
		return err
	}

	comp := cfg.Compression()
	if compress != "" {
		c, ok := wire.ParseCompression(compress)
		if !ok {
			return fmt.Errorf("compile: unknown compression %q", compress)
		}
		comp = c
	}

	res, err := resolver(cfg, resolveLinks, logger, stderr)
	if err != nil {
		return err
	}
	opts := []atff.Option{
		atff.WithResolver(res),
		atff.WithLogger(logger.WithComponent("codec").Logger),
	}

	if into == "-" {
		if isTerminal(stdout) {
			return fmt.Errorf("compile: refusing to write binary output to a terminal")
		}
		text, err := os.ReadFile(inputs[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		data, err := atff.Compile(ctx, text, comp, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", inputs[0], err)
		}
		_, err = stdout.Write(data)
		return err
	}

	for _, input := range inputs {
		out := into
		if out == "" {
			out = atff.OutputPath(input, cfg.Output.Extension)
		}
		digest, err := atff.CompileFile(ctx, input, out, comp, opts...)
		if err != nil {
			return err
		}
		logger.Info("compiled", "input", input, "output", out, "compression", comp.String())

		fmt.Fprintf(stdout, "Written at path %s\n", out)
		fmt.Fprintf(stdout, "%s%s\n", wire.DigestPrefix, digest)
	}
	return nil
}

// expandInputs expands glob patterns (including **) among args. A
// pattern matching nothing is an error; plain paths pass through.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			out = append(out, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("compile: pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("compile: no files match %q", arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// cmdLoad: ATFF -> text/json/yaml/cbor
func cmdLoad(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var g globals
	var format, digest, query string
	var resolveLinks bool

	fs := newFlagSet("load", &g, stderr)
	fs.StringVar(&format, "format", "text", "output format: text, json, yaml, cbor")
	fs.StringVar(&digest, "digest", "", "expected blake3 digest of the file")
	fs.StringVarP(&query, "query", "q", "", "jq expression over the JSON form; prints one result per line")
	fs.BoolVar(&resolveLinks, "resolve-links", false, "fetch and run links")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("load: expected one file, got %d", fs.NArg())
	}
	path := fs.Arg(0)

	f, ok := export.ParseFormat(format)
	if !ok {
		return fmt.Errorf("load: unknown format %q", format)
	}

	cfg, logger, err := g.setup(stderr)
	if err != nil {
		return err
	}

	data, err := readInput(path, stdin)
	if err != nil {
		return err
	}

	if digest != "" {
		want, ok := wire.ParseDigest(digest)
		if !ok {
			return fmt.Errorf("load: invalid digest %q", digest)
		}
		if got := wire.Sum(data); got != want {
			return fmt.Errorf("load: %s: digest mismatch: got %s", path, got)
		}
	}

	res, err := resolver(cfg, resolveLinks, logger, stderr)
	if err != nil {
		return err
	}
	doc, err := atff.Load(ctx, data,
		atff.WithResolver(res),
		atff.WithLogger(logger.WithComponent("codec").Logger),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if query != "" {
		results, err := export.Query(doc, query)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		for _, v := range results {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	}

	return export.Write(stdout, doc, f)
}

// cmdDiff prints a unified diff of two documents' canonical text.
// Links are never resolved. Exit status is 1 when they differ.
func cmdDiff(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := newFlagSet("diff", &g, stderr)
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("diff: expected two files, got %d", fs.NArg())
	}
	if _, _, err := g.setup(stderr); err != nil {
		return err
	}

	a, err := readDocument(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	b, err := readDocument(ctx, fs.Arg(1))
	if err != nil {
		return err
	}
	if a.Equal(b) {
		return nil
	}

	ta, tb := atff.Format(a), atff.Format(b)
	if ta == tb {
		fmt.Fprintf(stdout, "%s and %s differ only in ways authoring text cannot show (e.g. surrounding whitespace in a value)\n",
			fs.Arg(0), fs.Arg(1))
		return exitStatus(1)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(ta),
		B:        difflib.SplitLines(tb),
		FromFile: fs.Arg(0),
		ToFile:   fs.Arg(1),
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	if isTerminal(stdout) {
		text = colorDiff(text)
	}
	fmt.Fprint(stdout, text)
	return exitStatus(1)
}

// colorDiff colors removed lines red, added lines green and hunk headers
// cyan.
func colorDiff(text string) string {
	var (
		del  = color.New(color.FgRed)
		add  = color.New(color.FgGreen)
		hunk = color.New(color.FgCyan)
	)
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		body, nl := strings.CutSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "---"), strings.HasPrefix(body, "+++"):
			b.WriteString(color.New(color.Bold).Sprint(body))
		case strings.HasPrefix(body, "@@"):
			b.WriteString(hunk.Sprint(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(del.Sprint(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(add.Sprint(body))
		default:
			b.WriteString(body)
		}
		if nl {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// readDocument loads path as ATFF if it looks like one, else parses it
// as authoring text.
func readDocument(ctx context.Context, path string) (*atff.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var doc *atff.Document
	if atff.IsATFF(data) {
		doc, err = atff.Load(ctx, data)
	} else {
		doc, err = atff.Parse(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
