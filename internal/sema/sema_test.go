package sema

import (
	"testing"

	"mcc/internal/errors"
	"mcc/internal/lexer"
	"mcc/internal/parser"
	"mcc/internal/source"
)

func analyze(t *testing.T, src string) (*parser.TranslationUnit, *errors.Sink) {
	t.Helper()
	f := source.New("t.c", []byte(src))
	sink := &errors.Sink{}
	p1 := lexer.NewPhase1(f, false, sink)
	p2 := lexer.NewPhase2(p1, true, sink)
	table := lexer.NewTable()
	sc := lexer.NewScanner(p2, table, sink)
	ps := parser.New(sc, sink)
	tu, err := ps.ParseTranslationUnit()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	New(sink).Analyze(tu)
	return tu, sink
}

// TestArithmeticOperandsMustBeInt covers §4.4's binary-operand check: a
// pointer used as an arithmetic binary operand is rejected.
func TestArithmeticOperandsMustBeInt(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int *p; return p + 1; }")
	if !sink.Failed() {
		t.Fatalf("expected an error for a pointer operand of '+'")
	}
}

// TestWellTypedArithmeticPasses is the positive counterpart.
func TestWellTypedArithmeticPasses(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int a = 1; int b = 2; return a + b; }")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
}

// TestDerefOfNonPointerIsAnError covers unary '*' type checking.
func TestDerefOfNonPointerIsAnError(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int x = 1; return *x; }")
	if !sink.Failed() {
		t.Fatalf("expected an error for dereferencing a non-pointer")
	}
}

// TestTernaryBranchTypeMismatch covers §4.4's ternary type-equality rule.
func TestTernaryBranchTypeMismatch(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int *p; int x = 1; return x ? x : p; }")
	if !sink.Failed() {
		t.Fatalf("expected an error for mismatched ternary branch types")
	}
}

// TestAssignmentTypeMismatch covers the assignment type-equality check.
func TestAssignmentTypeMismatch(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int *p; int x; x = p; return 0; }")
	if !sink.Failed() {
		t.Fatalf("expected an error assigning a pointer to an int")
	}
}

// TestCompoundAssignRequiresArithmeticTarget covers the compound-assignment
// rule distinguishing plain '=' (any matching type) from '+=' and friends
// (arithmetic only).
func TestCompoundAssignRequiresArithmeticTarget(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int *p; p += 1; return 0; }")
	if !sink.Failed() {
		t.Fatalf("expected an error for compound-assigning through a pointer target")
	}
}

// TestCallTargetMustBeFunction covers the call-target type check.
func TestCallTargetMustBeFunction(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int x = 1; return x(); }")
	if !sink.Failed() {
		t.Fatalf("expected an error calling a non-function value")
	}
}

// TestBreakInsideNestedLoopPassesAnalyzer covers the accepting side of the
// analyzer-owned loop-context check: a break nested in an if inside a loop
// body is not reported.
func TestBreakInsideNestedLoopPassesAnalyzer(t *testing.T) {
	// The parser's own loopDepth tracking already rejects this at parse
	// time, so reaching the analyzer at all requires a tree built without
	// that guard; this test instead confirms a loop body break does NOT
	// trip the analyzer's check, exercising the inLoop increment/decrement
	// pairing across nested statements.
	_, sink := analyze(t, "int main(void) { while (1) { if (1) break; } return 0; }")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics for a break correctly nested in a loop: %v", sink.All())
	}
}

// TestAddressOfDerefElisionFusesTypes covers the authoritative &(*e) fusion:
// the outer '&' node's inferred type should be the inner dereferenced
// pointer's own type, not "pointer to (pointee of a pointer)".
func TestAddressOfDerefElisionFusesTypes(t *testing.T) {
	_, sink := analyze(t, "int main(void) { int *p; int *q; q = &(*p); return 0; }")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
}
