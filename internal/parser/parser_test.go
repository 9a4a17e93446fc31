package parser

import (
	"testing"

	"mcc/internal/errors"
	"mcc/internal/lexer"
	"mcc/internal/source"
)

// parseString runs src through phases 1-3 and the parser, with no
// preprocessing (macro expansion is exercised in package preprocess's own
// tests, not here). It returns the parsed unit and whatever the sink
// collected, never panicking — ParseTranslationUnit already turns a
// panic-mode syntax error into a returned error.
func parseString(src string) (*TranslationUnit, *errors.Sink, error) {
	f := source.New("test.c", []byte(src))
	sink := &errors.Sink{}
	p1 := lexer.NewPhase1(f, false, sink)
	p2 := lexer.NewPhase2(p1, true, sink)
	table := lexer.NewTable()
	sc := lexer.NewScanner(p2, table, sink)
	p := New(sc, sink)
	tu, err := p.ParseTranslationUnit()
	return tu, sink, err
}

func assertParseSuccess(t *testing.T, input, description string) *TranslationUnit {
	t.Helper()
	tu, sink, err := parseString(input)
	if err != nil {
		t.Errorf("%s: parse failed: %v", description, err)
		return nil
	}
	if sink.Failed() {
		t.Errorf("%s: sink reported failure: %v", description, sink.All())
	}
	return tu
}

func assertParseError(t *testing.T, input, description string) {
	t.Helper()
	_, sink, err := parseString(input)
	if err == nil && !sink.Failed() {
		t.Errorf("%s: expected a parse error, got none", description)
	}
}

func TestFunctionDefinitions(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		shouldPass bool
	}{
		{"empty main", "int main(void) { return 0; }", true},
		{"single param", "int id(int x) { return x; }", true},
		{"multiple params", "int add(int a, int b) { return a + b; }", true},
		{"void return", "void noop(void) { }", true},
		{"missing return type", "main(void) { return 0; }", false},
		{"missing body and semicolon", "int main(void)", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.shouldPass {
				assertParseSuccess(t, test.input, test.name)
			} else {
				assertParseError(t, test.input, test.name)
			}
		})
	}
}

func TestGlobalDeclarations(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		shouldPass bool
	}{
		{"single global", "int x;", true},
		{"global with init", "int x = 5;", true},
		{"multiple declarators", "int x = 1, y = 2;", true},
		{"pointer global", "int *p;", true},
		{"missing semicolon", "int x", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.shouldPass {
				assertParseSuccess(t, test.input, test.name)
			} else {
				assertParseError(t, test.input, test.name)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	wrap := func(body string) string { return "int main(void) { " + body + " }" }
	tests := []struct {
		name       string
		input      string
		shouldPass bool
	}{
		{"if", wrap("int x = 1; if (x) return x; "), true},
		{"if-else", wrap("int x = 1; if (x) return 1; else return 0; "), true},
		{"while", wrap("int i = 0; while (i < 10) i = i + 1; "), true},
		{"do-while", wrap("int i = 0; do i = i + 1; while (i < 10); "), true},
		{"for with expr init", wrap("int i; for (i = 0; i < 10; i = i + 1) ; "), true},
		{"for with decl init", wrap("for (int i = 0; i < 10; i = i + 1) ; "), true},
		{"nested compound", wrap("{ int x = 1; { int y = 2; } }"), true},
		{"break outside loop", wrap("break;"), false},
		{"continue outside loop", wrap("continue;"), false},
		{"break inside while", wrap("while (1) break;"), true},
		{"continue inside for", wrap("for (int i = 0; i < 10; i = i + 1) continue;"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.shouldPass {
				assertParseSuccess(t, test.input, test.name)
			} else {
				assertParseError(t, test.input, test.name)
			}
		})
	}
}

func TestExpressionPrecedence(t *testing.T) {
	wrap := func(expr string) string { return "int main(void) { int x = 1; return " + expr + "; }" }
	tests := []struct {
		name  string
		input string
	}{
		{"arithmetic", wrap("1 + 2 * 3")},
		{"relational and logical", wrap("x < 1 && x > 0 || x == 2")},
		{"ternary", wrap("x ? 1 : 0")},
		{"assignment chain", wrap("x = x = 1")},
		{"unary chain", wrap("-~!x")},
		{"address and deref", wrap("*&x")},
		{"compound assign", wrap("(x += 1)")},
		{"postfix inc", wrap("x++")},
		{"prefix inc desugars", wrap("++x")},
		{"call", "int f(int); int main(void) { return f(1); }"},
		{"parenthesized", wrap("(1 + 2) * 3")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assertParseSuccess(t, test.input, test.name)
		})
	}
}

func TestElisionFlagging(t *testing.T) {
	tu := assertParseSuccess(t, "int main(void) { int x = 1; return *&x; }", "deref of addr")
	if tu == nil {
		return
	}
	fn := tu.Functions[0]
	ret := fn.Body.Stmts[len(fn.Body.Stmts)-1].(*Jump)
	outer, ok := ret.Value.(*Unary)
	if !ok || outer.Op != "*" || !outer.Elide {
		t.Fatalf("expected outer '*' to be flagged for elision, got %#v", ret.Value)
	}
	inner, ok := outer.Operand.(*Unary)
	if !ok || inner.Op != "&" || !inner.Elide {
		t.Fatalf("expected inner '&' to be flagged for elision, got %#v", outer.Operand)
	}
}

func TestSymbolScoping(t *testing.T) {
	tu := assertParseSuccess(t, `
		int x;
		int shadow(int x) {
			int y = x;
			{
				int x = y;
				return x;
			}
		}
	`, "shadowing across scopes")
	if tu == nil {
		return
	}
	if len(tu.Functions) != 1 {
		t.Fatalf("expected one function, got %d", len(tu.Functions))
	}
}

func TestUndeclaredIdentifier(t *testing.T) {
	assertParseError(t, "int main(void) { return y; }", "undeclared identifier")
}

func TestLvalueRequirement(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"assign to literal", "int main(void) { 1 = 2; return 0; }"},
		{"address of literal", "int main(void) { int *p = &1; return 0; }"},
		{"increment literal", "int main(void) { 1++; return 0; }"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assertParseError(t, test.input, test.name)
		})
	}
}

func TestDeclaratorShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"pointer to int", "int *p;"},
		{"pointer to pointer", "int **p;"},
		{"function returning pointer", "int *f(void) { return 0; }"},
		{"function taking pointer", "int f(int *p) { return *p; }"},
		{"pointer to function", "int (*fp)(void);"},
		{"pointer to function returning pointer", "int *(*f)(int);"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assertParseSuccess(t, test.input, test.name)
		})
	}
}

// TestFunctionReturningPointerVsPointerToFunction locks in the declarator
// precedence rule: a bare "*" before a function's name modifies the return
// type (the function binds tighter), while parenthesizing the "*name" group
// makes the whole thing a pointer to a function.
func TestFunctionReturningPointerVsPointerToFunction(t *testing.T) {
	tu := assertParseSuccess(t, "int *f(void) { return 0; }", "function returning pointer")
	if tu == nil {
		return
	}
	ft := tu.Functions[0].Type
	if !ft.IsFunction() {
		t.Fatalf("expected f's type to be a function, got %s", ft)
	}
	if !ft.Return.IsPointer() || !ft.Return.Pointee.IsArithmetic() {
		t.Fatalf("expected f to return pointer to int, got return type %s", ft.Return)
	}

	tu = assertParseSuccess(t, "int (*fp)(void);", "pointer to function")
	if tu == nil {
		return
	}
	decl := tu.Declarations[0].Inits[0].Declarator
	if !decl.Type.IsPointer() {
		t.Fatalf("expected fp's type to be a pointer, got %s", decl.Type)
	}
	if !decl.Type.Pointee.IsFunction() {
		t.Fatalf("expected fp to point to a function, got pointee %s", decl.Type.Pointee)
	}
}

// TestPointerToFunctionTakingIntReturningPointer covers §8 property 14: the
// '*' before a parenthesized group binds to whatever the group turns out to
// be (a function, once its own trailing "(int)" is parsed), not to the
// group's contents, so "int *(*f)(int)" is pointer to function(int)
// returning pointer to int — not function returning pointer to pointer.
func TestPointerToFunctionTakingIntReturningPointer(t *testing.T) {
	tu := assertParseSuccess(t, "int *(*f)(int);", "pointer to function returning pointer")
	if tu == nil {
		return
	}
	decl := tu.Declarations[0].Inits[0].Declarator
	if !decl.Type.IsPointer() {
		t.Fatalf("expected f's type to be a pointer, got %s", decl.Type)
	}
	fn := decl.Type.Pointee
	if !fn.IsFunction() {
		t.Fatalf("expected f to point to a function, got pointee %s", fn)
	}
	if !fn.Return.IsPointer() || !fn.Return.Pointee.IsArithmetic() {
		t.Fatalf("expected f's function to return pointer to int, got return type %s", fn.Return)
	}
	if len(fn.Params) != 1 || !fn.Params[0].IsArithmetic() {
		t.Fatalf("expected f's function to take a single int parameter, got %v", fn.Params)
	}
}
