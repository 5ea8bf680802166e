// Command subc compiles a small C subset to x86-64 assembly.
//
// Usage:
//
//	subc [options] <input.c>
//	cat input.c | subc [options]
//
// Options:
//
//	-o <file>        Write assembly to file (default: stdout)
//	--dump-ast       Dump the typed AST to stderr before emitting assembly
//	--dump-types     Dump the struct-layout table to stderr
//	--log-level      debug|info|warn|error (default: info)
//	--no-color       Accepted; diagnostic output never contains ANSI escapes
//
// Config file:
//
//	subc looks for subc.json or .subcrc in the input file's directory and
//	parent directories. Config file values are overridden by CLI flags.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SARDONYX-sard/compiler-lesson/internal/ast"
	"github.com/SARDONYX-sard/compiler-lesson/internal/codegen"
	"github.com/SARDONYX-sard/compiler-lesson/internal/config"
	"github.com/SARDONYX-sard/compiler-lesson/internal/diagnostic"
	"github.com/SARDONYX-sard/compiler-lesson/internal/lexer"
	"github.com/SARDONYX-sard/compiler-lesson/internal/parser"
	"github.com/SARDONYX-sard/compiler-lesson/internal/types"
)

var version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "subc",
		Usage:   "compile a small C subset to x86-64 assembly",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write assembly to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "dump-ast", Usage: "dump the typed AST to stderr"},
			&cli.BoolFlag{Name: "dump-types", Usage: "dump the struct-layout table to stderr"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable ANSI in diagnostic output"},
		},
		Action: runCompile,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runCompile(c *cli.Context) error {
	overrides := config.CLIOverrides{}
	if c.IsSet("log-level") {
		v := c.String("log-level")
		overrides.LogLevel = &v
	}
	if c.IsSet("no-color") {
		v := c.Bool("no-color")
		overrides.NoColor = &v
	}
	if c.IsSet("dump-ast") {
		v := c.Bool("dump-ast")
		overrides.DumpAST = &v
	}
	if c.IsSet("dump-types") {
		v := c.Bool("dump-types")
		overrides.DumpTypes = &v
	}
	if c.IsSet("output") {
		v := c.String("output")
		overrides.Output = &v
	}

	searchDir, _ := os.Getwd()
	inputPath := c.Args().First()
	if inputPath != "" {
		searchDir = filepath.Dir(inputPath)
	}
	fileCfg, _, err := config.Load(searchDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts := fileCfg.Merge(overrides)

	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	source, err := readSource(inputPath)
	if err != nil {
		return err
	}

	asm, err := compile(source, opts, logger)
	if err != nil {
		logger.Error("compilation failed", zap.Error(err))
		if de, ok := err.(*diagnostic.Error); ok {
			fmt.Fprint(os.Stderr, de.Format())
		}
		return err
	}

	return writeOutput(opts.Output, asm)
}

func readSource(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(path, asm string) error {
	if path == "" {
		_, err := fmt.Print(asm)
		return err
	}
	return os.WriteFile(path, []byte(asm), 0o644)
}

// compile runs the lexer, parser, and code emitter. It is the single
// frame in the program that recovers a *diagnostic.Error panic and turns
// it into a returned error.
func compile(source string, opts config.Options, logger *zap.Logger) (asm string, err error) {
	defer diagnostic.Recover(&err)

	sink := diagnostic.NewSink(source)

	start := time.Now()
	tokens := lexer.Tokenize(source, sink)
	logger.Debug("lexing complete", zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	prog := parser.New(tokens, sink).Parse()
	logger.Debug("parsing complete", zap.Duration("elapsed", time.Since(start)),
		zap.Int("functions", len(prog.Functions)), zap.Int("globals", len(prog.Globals)))

	if opts.DumpTypes {
		dumpTypes(os.Stderr, prog)
	}
	if opts.DumpAST {
		dumpAST(os.Stderr, prog)
	}

	start = time.Now()
	asm = codegen.Generate(prog)
	logger.Debug("codegen complete", zap.Duration("elapsed", time.Since(start)))
	logger.Info("compilation succeeded", zap.Int("functions", len(prog.Functions)))

	return asm, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

func dumpTypes(w io.Writer, prog *ast.Program) {
	fmt.Fprintln(w, "-- struct layout --")
	seen := map[*types.Type]bool{}
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Type != nil && n.Type.Kind == types.KindStruct && !seen[n.Type] {
			seen[n.Type] = true
			fmt.Fprintf(w, "%s size=%d\n", n.Type.String(), n.Type.Size())
			for _, m := range n.Type.Members {
				fmt.Fprintf(w, "  %s: offset=%d size=%d\n", m.Name, m.Offset, m.Type.Size())
			}
		}
		walk(n.Lhs)
		walk(n.Rhs)
		walk(n.Cond)
		walk(n.Then)
		walk(n.Els)
		walk(n.Init)
		walk(n.Inc)
		walk(n.Body)
		walk(n.Next)
	}
	for _, fn := range prog.Functions {
		walk(fn.Body)
	}
}

func dumpAST(w io.Writer, prog *ast.Program) {
	fmt.Fprintln(w, "-- AST --")
	for _, fn := range prog.Functions {
		fmt.Fprintf(w, "(function %s\n", fn.Name)
		dumpNode(w, fn.Body, 1)
		fmt.Fprintln(w, ")")
	}
}

func dumpNode(w io.Writer, n *ast.Node, depth int) {
	if n == nil {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(w, "%s(%d", indent, n.Kind)
	if n.Var != nil {
		fmt.Fprintf(w, " %s", n.Var.Name)
	}
	fmt.Fprintln(w, ")")
	for _, child := range []*ast.Node{n.Lhs, n.Rhs, n.Cond, n.Then, n.Els, n.Init, n.Inc, n.Body} {
		dumpNode(w, child, depth+1)
	}
	dumpNode(w, n.Next, depth)
}
