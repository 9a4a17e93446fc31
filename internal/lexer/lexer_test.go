package lexer

import (
	"testing"

	"mcc/internal/errors"
	"mcc/internal/source"
)

func drain(p2 *Phase2) string {
	var out []byte
	for !p2.AtEnd() {
		out = append(out, p2.Advance())
	}
	return string(out)
}

func newStream(text string, trigraphs, relaxed bool) (*Phase2, *errors.Sink) {
	f := source.New("t.c", []byte(text))
	sink := &errors.Sink{}
	p1 := NewPhase1(f, trigraphs, sink)
	p2 := NewPhase2(p1, relaxed, sink)
	return p2, sink
}

// TestTrigraphTranslation covers property 1: each of the nine trigraphs
// expands to its punctuator only when trigraph translation is enabled.
func TestTrigraphTranslation(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"??=", "#"},
		{"??/", "\\"},
		{"??'", "^"},
		{"??(", "["},
		{"??)", "]"},
		{"??!", "|"},
		{"??<", "{"},
		{"??>", "}"},
		{"??-", "~"},
		{"??x", "??x"}, // not a recognized trigraph suffix, passed through
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			p2, _ := newStream(test.input, true, true)
			if got := drain(p2); got != test.want {
				t.Errorf("%q: got %q, want %q", test.input, got, test.want)
			}
		})
	}
}

// TestTrigraphsDisabledByDefault covers the other half of property 1: with
// translation off, "??=" must survive unexpanded.
func TestTrigraphsDisabledByDefault(t *testing.T) {
	p2, _ := newStream("??=", false, true)
	if got := drain(p2); got != "??=" {
		t.Errorf("expected trigraph to survive untranslated, got %q", got)
	}
}

// TestLineEndingNormalization covers property 2: \n, \r, \r\n, \n\r each
// collapse to exactly one '\n'.
func TestLineEndingNormalization(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"lf", "a\nb"},
		{"cr", "a\rb"},
		{"crlf", "a\r\nb"},
		{"lfcr", "a\n\rb"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p2, _ := newStream(test.input, false, true)
			if got := drain(p2); got != "a\nb" {
				t.Errorf("%s: got %q, want %q", test.name, got, "a\nb")
			}
		})
	}
}

// TestBackslashNewlineSplicing covers property 3: a backslash immediately
// followed by a newline disappears entirely, joining the two physical lines.
func TestBackslashNewlineSplicing(t *testing.T) {
	p2, sink := newStream("ab\\\ncd\n", false, true)
	got := drain(p2)
	if got != "abcd\n" {
		t.Fatalf("expected spliced line, got %q", got)
	}
	if sink.Failed() {
		t.Fatalf("unexpected diagnostics: %v", sink.All())
	}
}

// TestTrailingBackslashAtEOFIsFatal covers the edge case in §4.1: a
// backslash as the very last byte of the file cannot begin a splice and is
// reported as an error.
func TestTrailingBackslashAtEOFIsFatal(t *testing.T) {
	p2, sink := newStream("a\\", false, true)
	drain(p2)
	if !sink.Failed() {
		t.Fatalf("expected a diagnostic for a trailing backslash at EOF")
	}
}

// TestMissingFinalNewlineWarnsUnlessRelaxed covers the other documented edge
// case: a file not ending in '\n' warns in strict mode and is silent in
// relaxed mode.
func TestMissingFinalNewlineWarnsUnlessRelaxed(t *testing.T) {
	p2, sink := newStream("int x;", false, false)
	drain(p2)
	p2.CheckFinalNewline(false)
	if !sink.Failed() && len(sink.All()) == 0 {
		t.Fatalf("expected a warning diagnostic for a missing final newline")
	}

	p2, sink = newStream("int x;", false, true)
	drain(p2)
	p2.CheckFinalNewline(false)
	if len(sink.All()) != 0 {
		t.Fatalf("expected no diagnostics in relaxed mode, got %v", sink.All())
	}
}

// TestForbiddenControlCharacterReported covers property 4: a raw control
// byte outside the whitespace set is rejected rather than silently passed
// through.
func TestForbiddenControlCharacterReported(t *testing.T) {
	p2, sink := newStream("a\x01b\n", false, true)
	drain(p2)
	if !sink.Failed() {
		t.Fatalf("expected a diagnostic for a forbidden control byte")
	}
}

// TestBOMStripped covers property 5: a leading UTF-8 byte-order mark is
// consumed before the first real character, never surfacing as a token.
func TestBOMStripped(t *testing.T) {
	p2, _ := newStream("\xEF\xBB\xBFint\n", false, true)
	if got := drain(p2); got != "int\n" {
		t.Fatalf("expected BOM stripped, got %q", got)
	}
}

func scanAll(src string) ([]Token, *errors.Sink) {
	f := source.New("t.c", []byte(src))
	sink := &errors.Sink{}
	p1 := NewPhase1(f, false, sink)
	p2 := NewPhase2(p1, true, sink)
	table := NewTable()
	sc := NewScanner(p2, table, sink)
	var toks []Token
	for {
		tok := sc.Next()
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			break
		}
	}
	return toks, sink
}

// TestKeywordVsIdentifier covers the identifier/keyword boundary: an exact
// keyword spelling tokenizes as its keyword kind, and the same text with
// one extra character tokenizes as a plain identifier.
func TestKeywordVsIdentifier(t *testing.T) {
	toks, _ := scanAll("int integer\n")
	if toks[0].Kind != KindKwInt {
		t.Fatalf("expected %q to lex as the int keyword, got %v", "int", toks[0].Kind)
	}
	if toks[1].Kind != KindIdentifier {
		t.Fatalf("expected %q to lex as an identifier, got %v", "integer", toks[1].Kind)
	}
}

// TestIdenticalIdentifiersIntern covers the interning contract: two
// occurrences of the same spelling share one HashNode.
func TestIdenticalIdentifiersIntern(t *testing.T) {
	toks, _ := scanAll("foo foo\n")
	if toks[0].Ident == nil || toks[1].Ident == nil {
		t.Fatalf("expected both identifiers to carry an interned node")
	}
	if toks[0].Ident != toks[1].Ident {
		t.Fatalf("expected repeated spellings to share one interned node")
	}
}

// TestDigraphsLexAsDigraphKinds covers §4.1's digraph tokenization: each
// digraph spelling lexes as its own digraph kind.
func TestDigraphsLexAsDigraphKinds(t *testing.T) {
	toks, _ := scanAll("<: :> <% %>\n")
	want := []Kind{KindDigraphLBracket, KindDigraphRBracket, KindDigraphLBrace, KindDigraphRBrace}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

// TestMaximalMunchOnPunctuators ensures the scanner prefers the longest
// matching punctuator at each position (">>=" is one token, not ">", ">",
// "=").
func TestMaximalMunchOnPunctuators(t *testing.T) {
	toks, _ := scanAll(">>= >> > >=\n")
	want := []Kind{KindShrEq, KindShr, KindGreater, KindGreaterEq}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

// TestIntegerAndFloatingLiterals covers pp-number classification: a bare
// digit sequence without a dot/exponent lexes as an integer, and one with a
// dot lexes as a floating constant.
func TestIntegerAndFloatingLiterals(t *testing.T) {
	toks, _ := scanAll("42 3.14\n")
	if toks[0].Kind != KindInteger || toks[0].IntValue != 42 {
		t.Fatalf("expected integer 42, got %#v", toks[0])
	}
	if toks[1].Kind != KindFloating || toks[1].FloatValue != 3.14 {
		t.Fatalf("expected floating 3.14, got %#v", toks[1])
	}
}

// TestStartOfLineFlag covers the flag the preprocessor depends on to detect
// directive lines: only the first token on a physical line carries it.
func TestStartOfLineFlag(t *testing.T) {
	toks, _ := scanAll("a b\nc\n")
	if !toks[0].Flags.Has(FlagStartOfLine) {
		t.Fatalf("expected first token of the file to start a line")
	}
	if toks[1].Flags.Has(FlagStartOfLine) {
		t.Fatalf("did not expect the second token on the same line to start a line")
	}
	if !toks[2].Flags.Has(FlagStartOfLine) {
		t.Fatalf("expected the token on the next physical line to start a line")
	}
}
