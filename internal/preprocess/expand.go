package preprocess

import (
	"strconv"

	"mcc/internal/errors"
	"mcc/internal/lexer"
)

// expandAt attempts to expand the macro identifier tok, already pulled from
// the stream. It returns false (tok must be returned as an ordinary
// identifier) when tok names a function-like macro not followed by '('.
func (p *Preprocessor) expandAt(tok lexer.Token) bool {
	node := tok.Ident
	def := node.Macro

	switch def.Kind {
	case lexer.MacroBuiltinFile:
		p.pushResult(node, []lexer.Token{{Kind: lexer.KindString, StringValue: p.baseFile(), Loc: tok.Loc, Flags: tok.Flags}})
		return true
	case lexer.MacroBuiltinLine:
		line := p.baseLine()
		p.pushResult(node, []lexer.Token{{Kind: lexer.KindInteger, IntValue: int64(line), Lexeme: strconv.Itoa(line), Loc: tok.Loc, Flags: tok.Flags}})
		return true
	case lexer.MacroBuiltinDate:
		p.pushResult(node, []lexer.Token{{Kind: lexer.KindString, StringValue: p.dateStr, Loc: tok.Loc, Flags: tok.Flags}})
		return true
	case lexer.MacroBuiltinTime:
		p.pushResult(node, []lexer.Token{{Kind: lexer.KindString, StringValue: p.timeStr, Loc: tok.Loc, Flags: tok.Flags}})
		return true
	case lexer.MacroObject:
		node.Disable()
		body := withLeadingFlags(def.Body, tok.Flags)
		p.pushResult(node, body)
		return true
	case lexer.MacroFunction:
		return p.expandFunctionLike(tok, node, def)
	default:
		return false
	}
}

func (p *Preprocessor) baseFile() string {
	if p.lastLoc != nil {
		return p.lastLoc.File
	}
	if f := p.top(); f != nil {
		return f.file.Name
	}
	return ""
}

func (p *Preprocessor) baseLine() int {
	if p.lastLoc != nil {
		return p.lastLoc.Line
	}
	return 0
}

// withLeadingFlags makes a copy of body with its first token inheriting the
// original macro-use token's whitespace/start-of-line flags, per §4.2.
func withLeadingFlags(body []lexer.Token, flags lexer.Flags) []lexer.Token {
	if len(body) == 0 {
		return nil
	}
	out := make([]lexer.Token, len(body))
	copy(out, body)
	out[0].Flags = flags
	return out
}

// expandFunctionLike requires an immediate '(' (no intervening tokens; the
// scanner has already discarded whitespace/comments). If absent, the
// identifier is left alone and false is returned.
func (p *Preprocessor) expandFunctionLike(tok lexer.Token, node *lexer.HashNode, def *lexer.MacroDef) bool {
	next, ok := p.peekToken()
	if !ok || next.Kind != lexer.KindLParen {
		return false
	}
	p.pull() // consume '('

	args, ok := p.collectArgs(def)
	if !ok {
		p.sink.Errorf(errors.KindPreprocessor, tok.File(), tok.Line(), tok.Column(), "unterminated macro call to %q", node.Name)
		return true
	}

	expandedArgs := make([][]lexer.Token, len(args))
	for i, a := range args {
		expandedArgs[i] = p.expandTokenListFully(a)
	}

	body := p.substituteArgs(def, args, expandedArgs, tok.File(), tok.Line(), tok.Column())
	body = withLeadingFlags(body, tok.Flags)
	node.Disable()
	p.pushResult(node, body)
	return true
}

// collectArgs reads comma-separated, paren-balanced argument token lists up
// to the matching ')'. Variadic macros fold every argument past the last
// named parameter into one comma-joined list, per §4.2.
func (p *Preprocessor) collectArgs(def *lexer.MacroDef) ([][]lexer.Token, bool) {
	var args [][]lexer.Token
	var cur []lexer.Token
	depth := 0

	flush := func() {
		args = append(args, cur)
		cur = nil
	}

	if len(def.Params) == 0 && !def.Variadic {
		// A macro declared with an empty parameter list still accepts one
		// (conventionally empty) argument token list, e.g. F() — consume up
		// to the matching ')' and discard.
	}

	for {
		tok, ok := p.pull()
		if !ok || tok.Kind == lexer.KindEOF {
			return nil, false
		}
		switch tok.Kind {
		case lexer.KindLParen:
			depth++
			cur = append(cur, tok)
		case lexer.KindRParen:
			if depth == 0 {
				flush()
				return args, true
			}
			depth--
			cur = append(cur, tok)
		case lexer.KindComma:
			if depth == 0 && len(args) < variadicBoundary(def) {
				flush()
				continue
			}
			cur = append(cur, tok)
		default:
			cur = append(cur, tok)
		}
	}
}

// variadicBoundary returns the number of comma-delimited arguments collected
// as ordinary, individually-flushed arguments before the rest are folded
// into a single trailing __VA_ARGS__ argument. For a non-variadic macro this
// is unbounded (every top-level comma splits a new argument).
func variadicBoundary(def *lexer.MacroDef) int {
	if !def.Variadic {
		return int(^uint(0) >> 1)
	}
	return len(def.Params)
}

// substituteArgs instantiates def.Body, replacing each KindMacroArg
// placeholder with its (already expanded) argument's tokens. An index past
// the supplied argument count substitutes nothing, with a warning, per §4.2.
func (p *Preprocessor) substituteArgs(def *lexer.MacroDef, raw, expanded [][]lexer.Token, file string, line, col int) []lexer.Token {
	var out []lexer.Token
	for _, bt := range def.Body {
		if bt.Kind != lexer.KindMacroArg {
			out = append(out, bt)
			continue
		}
		idx := bt.MacroArgIndex
		if idx >= len(expanded) {
			p.sink.Warnf(errors.KindPreprocessor, file, line, col, "macro argument %d missing in call to %q", idx, "")
			continue
		}
		out = append(out, expanded[idx]...)
	}
	return out
}

// expandTokenListFully fully macro-expands a closed token list (a macro
// argument, already collected and bounded) in isolation: it never reaches
// into the outer stream, unlike body rescanning at the top level.
func (p *Preprocessor) expandTokenListFully(toks []lexer.Token) []lexer.Token {
	sub := &Preprocessor{table: p.table, sink: p.sink, opts: p.opts, dateStr: p.dateStr, timeStr: p.timeStr, lastLoc: p.lastLoc}
	sub.pending = make([]pendingItem, 0, len(toks))
	for _, t := range toks {
		sub.pending = append(sub.pending, pendingItem{tok: t})
	}
	var out []lexer.Token
	for {
		tok := sub.Next()
		if tok.Kind == lexer.KindEOF {
			break
		}
		out = append(out, tok)
	}
	return out
}
