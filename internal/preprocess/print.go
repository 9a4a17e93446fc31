package preprocess

import (
	"io"

	"mcc/internal/lexer"
)

// numberExtenders are the punctuators that could extend a preceding
// pp-number if pasted directly against it (e.g. "1" followed by "+" must
// not become "1+" if that would re-lex as one pp-number).
var numberExtenders = map[lexer.Kind]bool{
	lexer.KindPlus: true, lexer.KindMinus: true,
	lexer.KindPlusPlus: true, lexer.KindMinusMinus: true,
	lexer.KindDot: true,
}

// needsSpace reports whether a space must be inserted between prev and next
// to guarantee re-tokenizing the printed output reproduces the same token
// sequence, per §4.2 / the resolved Open Question (d) in §9: the exact
// equivalence classes are ident-like/ident-like, punct-like/punct-like, and
// pp-number followed by a number-extending punctuator.
func needsSpace(prev, next lexer.Token) bool {
	if prev.IsIdentLike() && next.IsIdentLike() {
		return true
	}
	if prev.IsPunctLike() && next.IsPunctLike() {
		return true
	}
	if prev.Kind == lexer.KindPPNumber && numberExtenders[next.Kind] {
		return true
	}
	return false
}

// Print writes the fully expanded token stream from p to w as text,
// inserting the minimal whitespace needed to avoid accidental token pasting
// and reproducing each token's render-start-of-line break.
func Print(w io.Writer, p *Preprocessor) error {
	var prev lexer.Token
	havePrev := false
	for {
		tok := p.Next()
		if tok.Kind == lexer.KindEOF {
			return nil
		}
		text := spelling(tok)
		if text == "" {
			continue
		}
		switch {
		case !havePrev:
		case tok.Flags.Has(lexer.FlagRenderStartOfLine):
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		case tok.Flags.Has(lexer.FlagWhitespaceBefore) || needsSpace(prev, tok):
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		prev = tok
		havePrev = true
	}
}

func spelling(t lexer.Token) string {
	switch t.Kind {
	case lexer.KindString:
		return prefixSpelling(t.Prefix) + `"` + t.StringValue + `"`
	case lexer.KindCharacter:
		return prefixSpelling(t.Prefix) + "'" + t.Lexeme + "'"
	default:
		return t.Lexeme
	}
}

func prefixSpelling(p lexer.StringPrefix) string {
	switch p {
	case lexer.PrefixU8:
		return "u8"
	case lexer.PrefixU:
		return "u"
	case lexer.PrefixUpperU:
		return "U"
	case lexer.PrefixL:
		return "L"
	default:
		return ""
	}
}
