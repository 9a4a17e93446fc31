package lexer

import (
	"mcc/internal/errors"
	"mcc/internal/source"
)

// trigraphs maps the nine C trigraph suffix characters (after "??") to the
// character they stand for.
var trigraphs = map[byte]byte{
	'=':  '#',
	'/':  '\\',
	'\'': '^',
	'(':  '[',
	')':  ']',
	'!':  '|',
	'<':  '{',
	'>':  '}',
	'-':  '~',
}

// Phase1 is the charset/trigraph/line-ending translation layer: a
// Reader-backed byte stream that Phase2 pulls from. It strips a leading
// UTF-8 BOM, rejects forbidden bytes, expands trigraphs when enabled, and
// normalizes \n, \r, \r\n, \n\r into a single '\n'.
type Phase1 struct {
	r           *source.Reader
	sink        *errors.Sink
	trigraphs   bool
	bomStripped bool

	havePushback bool
	pushback     byte
}

// NewPhase1 creates a phase-1 stream over f. trigraphEnabled controls
// whether "??X" sequences are translated; sink receives lexical diagnostics.
func NewPhase1(f *source.File, trigraphEnabled bool, sink *errors.Sink) *Phase1 {
	p := &Phase1{r: source.NewReader(f), sink: sink, trigraphs: trigraphEnabled}
	p.stripBOM()
	return p
}

func (p *Phase1) stripBOM() {
	if p.bomStripped {
		return
	}
	p.bomStripped = true
	if p.r.PeekAt(0) == 0xEF && p.r.PeekAt(1) == 0xBB && p.r.PeekAt(2) == 0xBF {
		p.r.Advance()
		p.r.Advance()
		p.r.Advance()
	}
}

// AtEnd reports whether the underlying byte stream is exhausted.
func (p *Phase1) AtEnd() bool {
	if p.havePushback {
		return false
	}
	return p.r.AtEnd()
}

// File returns the source file this stream is reading.
func (p *Phase1) File() *source.File { return p.r.File() }

// Mark returns the current (line, column), for building a Location around
// the next Advance.
func (p *Phase1) Mark() (line, column int) { return p.r.Mark() }

// isForbiddenControl reports whether c is a control byte phase 1 must
// reject: anything below 0x20 except the whitespace controls, and 0x7F.
func isForbiddenControl(c byte) bool {
	if c == '\n' || c == '\r' || c == '\t' || c == '\v' || c == '\f' {
		return false
	}
	return c < 0x20 || c == 0x7F
}

// Advance consumes and returns the next translated character: line endings
// normalized to '\n', trigraphs expanded when enabled, forbidden bytes
// reported and skipped.
func (p *Phase1) Advance() byte {
	if p.havePushback {
		p.havePushback = false
		return p.pushback
	}
	return p.translate()
}

// translate performs one full translation step directly off the reader,
// with no pushback involved.
func (p *Phase1) translate() byte {
	for {
		if p.r.AtEnd() {
			return 0
		}
		c := p.r.Peek()

		// Line-ending normalization: \n, \r, \r\n, \n\r are each exactly
		// one line advance, always surfaced as a single '\n'.
		if c == '\n' || c == '\r' {
			first := p.r.Advance()
			if (first == '\n' && p.r.Peek() == '\r') || (first == '\r' && p.r.Peek() == '\n') {
				p.r.Advance()
			}
			return '\n'
		}

		if p.trigraphs && c == '?' && p.r.PeekAt(1) == '?' {
			if repl, ok := trigraphs[p.r.PeekAt(2)]; ok {
				p.r.Advance()
				p.r.Advance()
				p.r.Advance()
				return repl
			}
		}

		if c == 0xC0 || c == 0xC1 || c >= 0xF5 {
			line, col := p.r.Mark()
			p.sink.Errorf(errors.KindLexical, p.r.File().Name, line, col, "invalid UTF-8 lead byte 0x%02X", c)
			p.r.Advance()
			continue
		}
		if isForbiddenControl(c) {
			line, col := p.r.Mark()
			p.sink.Errorf(errors.KindLexical, p.r.File().Name, line, col, "forbidden control character 0x%02X", c)
			p.r.Advance()
			continue
		}

		return p.r.Advance()
	}
}

// Peek returns the next translated character without consuming it. Because
// trigraph expansion and line-ending normalization can consume more than one
// raw byte, Peek is implemented by translating into a one-character pushback
// buffer on first use.
func (p *Phase1) Peek() byte {
	if !p.havePushback {
		p.pushback = p.translate()
		p.havePushback = true
	}
	return p.pushback
}
