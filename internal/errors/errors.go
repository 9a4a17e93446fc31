// Package errors implements the diagnostic channel described by §7: every
// diagnostic carries a precise (file, line, column), a one-line message, and
// a severity. Warnings use the same channel as errors but never set the
// failure flag. Kept in the teacher's shape (a custom error struct satisfying
// the `error` interface, not a generic wrapping library) because that is how
// the teacher's own internal/errors threads location info through parser and
// runtime diagnostics.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the diagnostic category, following §7's error-kind list.
type Kind string

const (
	KindIO           Kind = "IOError"           // fatal
	KindLexical      Kind = "LexicalError"      // recoverable, emits an error token
	KindPreprocessor Kind = "PreprocessorError" // recoverable, skips to end of logical line
	KindSyntax       Kind = "SyntaxError"       // currently fatal (panic-mode, see Parser)
	KindSemantic     Kind = "SemanticError"     // translation-unit fatal after the full pass
	KindAssertion    Kind = "AssertionError"    // programmer error in the IR builder; abort
)

// Severity distinguishes a warning (reported, non-fatal) from an error.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Location is the (file, line, column) triple every diagnostic anchors to.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is a single error or warning with enough context to print the
// offending source line and a caret, matching the teacher's SentraError
// rendering.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Message  string
	Location Location
	Source   string // the source line the diagnostic points into, if known
}

// Error implements the error interface so a Diagnostic can be returned or
// panicked with directly (the parser still panics on syntax errors, per §4.3
// and the Open Questions in §9 — statement-level recovery is left as the
// documented, unfixed deficiency the spec calls out).
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	label := "error"
	if d.Severity == SeverityWarning {
		label = "warning"
	}
	sb.WriteString(fmt.Sprintf("%s: %s: %s\n", d.Kind, label, d.Message))
	if d.Location.File != "" {
		sb.WriteString(fmt.Sprintf("  at %s\n", d.Location))
		if d.Source != "" {
			gutter := fmt.Sprintf("  %d | ", d.Location.Line)
			sb.WriteString("\n" + gutter + d.Source + "\n")
			sb.WriteString(strings.Repeat(" ", len(gutter)))
			if d.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", d.Location.Column-1))
			}
			sb.WriteString("^\n")
		}
	}
	return sb.String()
}

// WithSource attaches the source line for caret rendering and returns d for
// chaining.
func (d *Diagnostic) WithSource(line string) *Diagnostic {
	d.Source = line
	return d
}

// New builds an error-severity Diagnostic.
func New(kind Kind, message, file string, line, column int) *Diagnostic {
	return &Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Message:  message,
		Location: Location{File: file, Line: line, Column: column},
	}
}

// Warning builds a warning-severity Diagnostic.
func Warning(kind Kind, message, file string, line, column int) *Diagnostic {
	d := New(kind, message, file, line, column)
	d.Severity = SeverityWarning
	return d
}

// Sink accumulates diagnostics across a translation unit the way the
// teacher's Parser.Errors []error slice does, except it also tracks whether
// any accumulated diagnostic is fatal (an error, not a warning) so callers
// can decide whether to proceed to the next phase.
type Sink struct {
	items []*Diagnostic
}

// Report appends d to the sink.
func (s *Sink) Report(d *Diagnostic) { s.items = append(s.items, d) }

// Errorf reports a new error-severity diagnostic.
func (s *Sink) Errorf(kind Kind, file string, line, column int, format string, args ...any) {
	s.Report(New(kind, fmt.Sprintf(format, args...), file, line, column))
}

// Warnf reports a new warning-severity diagnostic.
func (s *Sink) Warnf(kind Kind, file string, line, column int, format string, args ...any) {
	s.Report(Warning(kind, fmt.Sprintf(format, args...), file, line, column))
}

// Failed reports whether any accumulated diagnostic is an error rather than
// a warning — the signal used to abandon compilation before IR lowering, per
// §4.5's failure semantics.
func (s *Sink) Failed() bool {
	for _, d := range s.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every accumulated diagnostic in report order.
func (s *Sink) All() []*Diagnostic { return s.items }

// Assert panics with a stack-trace-carrying error if cond is false. This is
// the "IR-build assertion: programmer error; abort" path from §7 — it is
// never expected to fire on valid input, so it deliberately does not go
// through the Sink.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(pkgerrors.Wrap(fmt.Errorf(format, args...), "ir builder invariant violated"))
	}
}
