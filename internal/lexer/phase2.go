package lexer

import (
	"mcc/internal/errors"
	"mcc/internal/source"
)

// Phase2 removes backslash-newline pairs from the phase-1 character stream.
// A trailing backslash at end of file is a fatal error. CheckFinalNewline
// reports a file not ending in a newline as a warning unless relaxed mode is
// requested, in which case it is ignored outright.
type Phase2 struct {
	p1      *Phase1
	sink    *errors.Sink
	relaxed bool

	havePushback bool
	pushback     byte
}

// NewPhase2 layers line splicing over p1.
func NewPhase2(p1 *Phase1, relaxed bool, sink *errors.Sink) *Phase2 {
	return &Phase2{p1: p1, sink: sink, relaxed: relaxed}
}

// AtEnd reports whether the spliced stream is exhausted.
func (p *Phase2) AtEnd() bool {
	if p.havePushback {
		return false
	}
	return p.p1.AtEnd()
}

// Advance consumes and returns the next spliced character.
func (p *Phase2) Advance() byte {
	if p.havePushback {
		p.havePushback = false
		return p.pushback
	}
	return p.splice()
}

// Peek returns the next spliced character without consuming it.
func (p *Phase2) Peek() byte {
	if !p.havePushback {
		p.pushback = p.splice()
		p.havePushback = true
	}
	return p.pushback
}

// Mark returns the current (line, column) of the underlying phase-1 stream.
func (p *Phase2) Mark() (line, column int) { return p.p1.Mark() }

// File returns the source file this stream is reading.
func (p *Phase2) File() *source.File { return p.p1.File() }

func (p *Phase2) splice() byte {
	for {
		if p.p1.AtEnd() {
			return 0
		}
		c := p.p1.Advance()
		if c != '\\' {
			return c
		}
		if p.p1.AtEnd() {
			line, col := p.p1.Mark()
			p.sink.Errorf(errors.KindLexical, p.p1.File().Name, line, col, "backslash at end of file")
			return '\\'
		}
		if p.p1.Peek() == '\n' {
			p.p1.Advance()
			continue
		}
		return c
	}
}

// CheckFinalNewline reports whether the file's last consumed character was a
// newline, warning (or, in relaxed mode, staying silent) if not. It runs
// only when called directly: neither the scanner, the preprocessor nor
// cmd/cc calls it, so a compile reports no missing final newline.
func (p *Phase2) CheckFinalNewline(endedWithNewline bool) {
	if endedWithNewline || p.relaxed {
		return
	}
	line, col := p.p1.Mark()
	p.sink.Warnf(errors.KindLexical, p.p1.File().Name, line, col, "file does not end in newline")
}
