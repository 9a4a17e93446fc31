package preprocess

import (
	"strings"
	"testing"

	"mcc/internal/errors"
	"mcc/internal/lexer"
	"mcc/internal/source"
)

func expandAll(t *testing.T, src string) ([]lexer.Token, *errors.Sink) {
	t.Helper()
	f := source.New("t.c", []byte(src))
	sink := &errors.Sink{}
	p := New(f, Options{Trigraphs: false, Relaxed: true, Search: NewSearchPath(nil, nil)}, sink)
	var toks []lexer.Token
	for {
		tok := p.Next()
		if tok.Kind == lexer.KindEOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks, sink
}

func lexemes(toks []lexer.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Lexeme
	}
	return out
}

func assertLexemes(t *testing.T, got []lexer.Token, want ...string) {
	t.Helper()
	gotLex := lexemes(got)
	if len(gotLex) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(gotLex), gotLex, len(want), want)
	}
	for i := range want {
		if gotLex[i] != want[i] {
			t.Fatalf("token %d: got %q, want %q (full: %v)", i, gotLex[i], want[i], gotLex)
		}
	}
}

// TestObjectLikeMacroExpansion covers property 6: a plain #define substitutes
// its body wherever the name appears.
func TestObjectLikeMacroExpansion(t *testing.T) {
	toks, sink := expandAll(t, "#define FOO 42\nFOO\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	if len(toks) != 1 || toks[0].Lexeme != "42" {
		t.Fatalf("expected a single token 42, got %v", lexemes(toks))
	}
}

// TestFunctionLikeMacroExpansion covers property 7: parameters substitute
// positionally into the macro body.
func TestFunctionLikeMacroExpansion(t *testing.T) {
	toks, sink := expandAll(t, "#define ADD(a, b) a + b\nADD(1, 2)\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	assertLexemes(t, toks, "1", "+", "2")
}

// TestSelfReferentialMacroDoesNotRecurse covers property 8: a macro whose
// body refers to its own name is not re-expanded within its own expansion
// (the classic blue-paint / "painted blue" rule), so the name itself
// survives as a bare identifier once.
func TestSelfReferentialMacroDoesNotRecurse(t *testing.T) {
	toks, sink := expandAll(t, "#define X X + 1\nX\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	assertLexemes(t, toks, "X", "+", "1")
}

// TestMutuallyRecursiveMacrosTerminate covers the same blue-paint rule
// across two macros that expand into each other.
func TestMutuallyRecursiveMacrosTerminate(t *testing.T) {
	toks, sink := expandAll(t, "#define A B\n#define B A\nA\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	if len(toks) != 1 {
		t.Fatalf("expected expansion to terminate with exactly one surviving token, got %v", lexemes(toks))
	}
}

// TestUndefRemovesDefinition covers #undef: after undefining a macro, its
// name no longer expands.
func TestUndefRemovesDefinition(t *testing.T) {
	toks, sink := expandAll(t, "#define FOO 1\n#undef FOO\nFOO\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	assertLexemes(t, toks, "FOO")
}

// TestIncludeDepthCapIsEnforced covers property 9: the 15-deep nesting cap,
// exercised without a filesystem fixture — more than MaxIncludeDepth frames
// are pushed directly onto a Preprocessor, and one more #include from that
// depth must be refused by doInclude's depth guard.
func TestIncludeDepthCapIsEnforced(t *testing.T) {
	f := source.New("t.c", []byte(""))
	sink := &errors.Sink{}
	p := New(f, Options{Relaxed: true, Search: NewSearchPath(nil, nil)}, sink)
	for i := 0; i < MaxIncludeDepth+1; i++ {
		p.pushFile(source.New("nested.c", []byte("")), "", nil)
	}
	if len(p.stack) <= MaxIncludeDepth {
		t.Fatalf("expected more than %d frames to be pushed for this test to be meaningful", MaxIncludeDepth)
	}
	p.pushFile(source.New("deep.c", []byte("\"x.h\"\n")), "", nil)
	p.doInclude(false)
	tooDeep := false
	for _, d := range sink.All() {
		if strings.Contains(d.Message, "nested too deeply") {
			tooDeep = true
		}
	}
	if !tooDeep {
		t.Fatalf("expected the depth guard to reject the #include, got %v", sink.All())
	}
}

// TestPredefinedStdcMacro covers the predefined object-like macros from
// §4.2 / §6: __STDC__ expands to 1.
func TestPredefinedStdcMacro(t *testing.T) {
	toks, sink := expandAll(t, "__STDC__\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	assertLexemes(t, toks, "1")
}

// TestVarargsOutsideVariadicMacroIsAnError covers the __VA_ARGS__ misuse
// diagnostic.
func TestVarargsOutsideVariadicMacroIsAnError(t *testing.T) {
	_, sink := expandAll(t, "#define F(a) __VA_ARGS__\n")
	if !sink.Failed() {
		t.Fatalf("expected an error for __VA_ARGS__ in a non-variadic macro")
	}
}

// TestUnknownDirectiveIsPassedThroughPragmatically covers §4.2's documented
// leniency: an unrecognized '#' directive is skipped rather than erroring.
func TestUnknownDirectiveIsPassedThroughPragmatically(t *testing.T) {
	toks, sink := expandAll(t, "#pragma once\nint x;\n")
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
	assertLexemes(t, toks, "int", "x", ";")
}

// TestSearchPathDeduplicatesRepeatedDirectories covers the dedup behavior
// added to NewSearchPath.
func TestSearchPathDeduplicatesRepeatedDirectories(t *testing.T) {
	sp := NewSearchPath([]string{"/usr/include", "/usr/include", "/opt/include"}, nil)
	if len(sp.User) != 2 {
		t.Fatalf("expected duplicate user directory to be collapsed, got %v", sp.User)
	}
}

// TestSearchPathFiltersBinSegment covers the existing bin/ filter on system
// directories.
func TestSearchPathFiltersBinSegment(t *testing.T) {
	sp := NewSearchPath(nil, []string{"/usr/bin/include", "/usr/include"})
	if len(sp.System) != 1 || sp.System[0] != "/usr/include" {
		t.Fatalf("expected bin/ segment directory filtered out, got %v", sp.System)
	}
}
