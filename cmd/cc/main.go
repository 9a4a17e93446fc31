// cmd/cc is the compiler driver: flag parsing, per-file pipeline wiring, and
// diagnostic reporting, kept as hand-rolled flag/os.Args handling in the
// same spirit as the teacher's cmd/sentra/main.go (no CLI framework).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"mcc/internal/config"
	"mcc/internal/errors"
	"mcc/internal/ir"
	"mcc/internal/lexer"
	"mcc/internal/lower"
	"mcc/internal/parser"
	"mcc/internal/preprocess"
	"mcc/internal/sema"
	"mcc/internal/source"
	"mcc/internal/testrunner"
)

const version = "0.1.0"

// stringList accumulates repeated -I flags, since flag.Var is how the
// standard library supports multi-valued flags without a third-party CLI
// framework.
type stringList struct{ values []string }

func (s *stringList) String() string   { return fmt.Sprint(s.values) }
func (s *stringList) Set(v string) error {
	s.values = append(s.values, v)
	return nil
}

func main() {
	var includes stringList
	var stopPhase int
	printAST := flag.Bool("print-ast", false, "print a one-line-per-declaration AST summary")
	printIR := flag.Bool("print-ir", false, "print the lowered IR")
	debugAST := flag.Bool("debug-ast", false, "dump the full AST structure (for debugging the parser itself)")
	noTrigraphs := flag.Bool("no-trigraphs", true, "disable trigraph translation")
	relaxed := flag.Bool("relaxed", false, "tolerate a missing final newline")
	testPath := flag.String("test", "", "run the testscript fixture tree rooted at PATH")
	flag.Var(&includes, "I", "add an include directory; prefix with - for a system directory")
	flag.IntVar(&stopPhase, "E", 0, "stop after translation phase N (1-8)")
	flag.Parse()

	if *testPath != "" {
		if err := testrunner.Run(*testPath); err != nil {
			log.Fatalf("test: %v", err)
		}
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "cc %s: usage: cc [flags] file...\n", version)
		os.Exit(2)
	}

	ctx := config.New()
	ctx.Trigraphs = !*noTrigraphs
	ctx.Relaxed = *relaxed
	ctx.PrintAST = *printAST
	ctx.PrintIR = *printIR
	if stopPhase != 0 {
		ctx.Stop = config.StopPhase(stopPhase)
	}
	ctx.Search = parseIncludes(includes.values)

	color := isatty.IsTerminal(os.Stderr.Fd())

	var g errgroup.Group
	failed := make([]bool, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			failed[i] = !compileOne(f, ctx, color, *debugAST)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			os.Exit(1)
		}
	}
}

// parseIncludes splits -I values into user and system lists: "-Ipath" is a
// user directory, "-I-path" (a leading '-' in the path argument) marks a
// system directory, per §6.
func parseIncludes(vals []string) *preprocess.SearchPath {
	var user, system []string
	for _, v := range vals {
		if len(v) > 0 && v[0] == '-' {
			system = append(system, v[1:])
		} else {
			user = append(user, v)
		}
	}
	return preprocess.NewSearchPath(user, system)
}

// compileOne runs one translation unit through every phase up to ctx.Stop,
// reporting diagnostics and returning whether it succeeded.
func compileOne(path string, ctx *config.TranslationContext, color, debugAST bool) bool {
	f, err := source.Read(path)
	if err != nil {
		log.Printf("%s: %v", path, err)
		return false
	}

	sink := &errors.Sink{}

	p1 := lexer.NewPhase1(f, ctx.Trigraphs, sink)
	p2 := lexer.NewPhase2(p1, ctx.Relaxed, sink)

	if ctx.Stop <= config.StopPhase2 {
		drainBytes(p2)
		return reportAndSucceed(sink, color)
	}

	table := lexer.NewTable()
	sc := lexer.NewScanner(p2, table, sink)

	if ctx.Stop == config.StopPhase3 {
		drainTokens(sc)
		return reportAndSucceed(sink, color)
	}

	pp := preprocess.New(f, ctx.PreprocessOptions(), sink)

	if ctx.Stop == config.StopPhase4 || ctx.Stop == config.StopPreprocess {
		if err := preprocess.Print(os.Stdout, pp); err != nil {
			log.Printf("%s: %v", path, err)
		}
		return reportAndSucceed(sink, color)
	}

	ps := parser.New(pp, sink)
	tu, perr := ps.ParseTranslationUnit()
	if perr != nil {
		return reportAndSucceed(sink, color)
	}

	if ctx.PrintAST {
		fmt.Println(astSummary(tu))
	}
	if debugAST {
		fmt.Fprintf(os.Stderr, "%s: %# v\n", path, pretty.Formatter(tu))
	}

	analyzer := sema.New(sink)
	analyzer.Analyze(tu)
	if sink.Failed() {
		return reportAndSucceed(sink, color)
	}

	mod := lower.New().Lower(tu)
	if ctx.PrintIR {
		fmt.Print(ir.Print(mod))
		fmt.Fprintf(os.Stderr, "%s: %s of source locations retained\n",
			path, humanize.Bytes(uint64(f.LocationArenaBytes())))
	}

	return reportAndSucceed(sink, color)
}

func drainBytes(p2 *lexer.Phase2) {
	for !p2.AtEnd() {
		p2.Advance()
	}
}

func drainTokens(sc *lexer.Scanner) {
	for {
		tok := sc.Next()
		if tok.Kind == lexer.KindEOF {
			return
		}
	}
}

func reportAndSucceed(sink *errors.Sink, color bool) bool {
	for _, d := range sink.All() {
		printDiagnostic(d, color)
	}
	return !sink.Failed()
}

func printDiagnostic(d *errors.Diagnostic, color bool) {
	msg := d.Error()
	if color {
		code := "31"
		if d.Severity == errors.SeverityWarning {
			code = "33"
		}
		msg = "\x1b[" + code + "m" + msg + "\x1b[0m"
	}
	fmt.Fprint(os.Stderr, msg)
}

// astSummary is a minimal --print-ast rendering: one line per top-level
// function/declaration, sufficient for the testscript fixtures to diff
// against without a full pretty-printer.
func astSummary(tu *parser.TranslationUnit) string {
	out := ""
	for _, fn := range tu.Functions {
		out += fmt.Sprintf("function %s %s\n", fn.Name, fn.Type)
	}
	for _, d := range tu.Declarations {
		for _, init := range d.Inits {
			out += fmt.Sprintf("declare %s %s\n", init.Declarator.Name, init.Declarator.Type)
		}
	}
	return out
}
