// Package testrunner drives the compiler's own golden-file fixtures through
// rogpeppe/go-internal/testscript, the same harness the broader ecosystem
// uses for testing command-line tools end to end: each fixture is a .txtar
// script that runs the cc binary against a small C source and asserts on its
// stdout/stderr/exit code.
package testrunner

import (
	"os"

	"github.com/rogpeppe/go-internal/testscript"
)

// Run executes every *.txtar script found under dir as a testscript test,
// reporting failures to stderr and returning a non-nil error if any script
// failed. It is invoked from cmd/cc's --test flag, outside of `go test`, so
// it drives testscript.RunT directly against a synthetic *testing.T rather
// than relying on the `go test` harness.
func Run(dir string) error {
	t := &collectingT{}
	testscript.RunT(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			env.Setenv("CC_BUILD", "1")
			return nil
		},
	})
	if t.failed {
		return errFailed
	}
	return nil
}

var errFailed = &runError{"one or more test scripts failed"}

type runError struct{ msg string }

func (e *runError) Error() string { return e.msg }

// collectingT adapts testscript.RunT's T requirement to a standalone CLI
// invocation, printing failures to stderr instead of relying on `go test`'s
// reporting.
type collectingT struct {
	failed bool
}

func (t *collectingT) Skip(args ...any) {}
func (t *collectingT) Fatal(args ...any) { t.failed = true; printArgs(args...) }
func (t *collectingT) Parallel()         {}
func (t *collectingT) Log(args ...any)   { printArgs(args...) }
func (t *collectingT) FailNow()          { t.failed = true }
func (t *collectingT) Run(name string, f func(testscript.T)) { f(t) }
func (t *collectingT) Verbose() bool { return false }

func printArgs(args ...any) {
	for _, a := range args {
		os.Stderr.WriteString(toString(a))
		os.Stderr.WriteString(" ")
	}
	os.Stderr.WriteString("\n")
}

func toString(a any) string {
	if s, ok := a.(string); ok {
		return s
	}
	if e, ok := a.(error); ok {
		return e.Error()
	}
	return ""
}
