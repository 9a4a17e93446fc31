package preprocess

import (
	"mcc/internal/errors"
	"mcc/internal/lexer"
	"mcc/internal/source"
)

// handleDirective is called with the leading '#' (or '%:') already consumed
// from the stream. It reads the directive name and dispatches, then
// discards any remaining tokens up to end-of-line so the directive never
// leaks into the expanded output.
func (p *Preprocessor) handleDirective() {
	name, ok := p.pull()
	if !ok || name.Kind == lexer.KindEOF {
		return
	}
	if name.Flags.Has(lexer.FlagStartOfLine) {
		// Empty directive ("#" alone on a line): nothing to do.
		p.unread(name)
		return
	}
	if name.Kind != lexer.KindIdentifier {
		p.skipToEndOfLine()
		return
	}

	switch name.Lexeme {
	case "define":
		p.doDefine()
	case "undef":
		p.doUndef()
	case "include":
		p.doInclude(false)
	case "include_next":
		p.doInclude(true)
	default:
		// Unknown directives are passed through pragmatically, per §4.2: a
		// stricter mode would error here instead.
		p.skipToEndOfLine()
	}
}

// unread pushes a single already-pulled token back to the front of pending.
func (p *Preprocessor) unread(tok lexer.Token) {
	p.pending = append([]pendingItem{{tok: tok}}, p.pending...)
}

// skipToEndOfLine discards tokens until one is flagged start-of-line (which
// is left in place for the next pull) or EOF is reached.
func (p *Preprocessor) skipToEndOfLine() {
	for {
		tok, ok := p.pull()
		if !ok || tok.Kind == lexer.KindEOF {
			if ok {
				p.unread(tok)
			}
			return
		}
		if tok.Flags.Has(lexer.FlagStartOfLine) {
			p.unread(tok)
			return
		}
	}
}

func (p *Preprocessor) restOfLine() []lexer.Token {
	var out []lexer.Token
	for {
		tok, ok := p.pull()
		if !ok || tok.Kind == lexer.KindEOF {
			if ok {
				p.unread(tok)
			}
			return out
		}
		if tok.Flags.Has(lexer.FlagStartOfLine) {
			p.unread(tok)
			return out
		}
		out = append(out, tok)
	}
}

// doDefine implements #define per §4.2: an identifier immediately followed
// by '(' with no whitespace introduces a function-like macro.
func (p *Preprocessor) doDefine() {
	nameTok, ok := p.pull()
	if !ok || nameTok.Kind != lexer.KindIdentifier {
		p.errHere(errors.KindPreprocessor, "macro name must be an identifier")
		p.skipToEndOfLine()
		return
	}
	node := nameTok.Ident

	isFunc := false
	if peeked, ok2 := p.peekToken(); ok2 && peeked.Kind == lexer.KindLParen && !peeked.Flags.Has(lexer.FlagWhitespaceBefore) {
		isFunc = true
	}

	def := &lexer.MacroDef{Kind: lexer.MacroObject}
	var params []string
	if isFunc {
		p.pull() // '('
		def.Kind = lexer.MacroFunction
		params, def.Variadic = p.parseParamList()
		def.Params = params
	}

	body := p.restOfLine()
	if isFunc {
		body = rewriteArgRefs(body, params, def.Variadic)
	}
	checkVAArgsUsage(p, body, isFunc, def.Variadic, nameTok)
	def.Body = body
	node.Macro = def
}

func (p *Preprocessor) parseParamList() (params []string, variadic bool) {
	for {
		tok, ok := p.pull()
		if !ok || tok.Kind == lexer.KindEOF {
			return
		}
		if tok.Kind == lexer.KindRParen {
			return
		}
		if tok.Kind == lexer.KindEllipsis {
			variadic = true
			continue
		}
		if tok.Kind == lexer.KindIdentifier {
			params = append(params, tok.Lexeme)
		}
		if tok.Kind == lexer.KindComma {
			continue
		}
	}
}

// rewriteArgRefs replaces identifier tokens matching a parameter name (or
// __VA_ARGS__, for a variadic macro) with KindMacroArg placeholders.
func rewriteArgRefs(body []lexer.Token, params []string, variadic bool) []lexer.Token {
	index := make(map[string]int, len(params))
	for i, name := range params {
		index[name] = i
	}
	vaIndex := len(params)
	out := make([]lexer.Token, len(body))
	copy(out, body)
	for i, t := range out {
		if t.Kind != lexer.KindIdentifier {
			continue
		}
		if variadic && t.Lexeme == "__VA_ARGS__" {
			out[i] = lexer.Token{Kind: lexer.KindMacroArg, MacroArgIndex: vaIndex, Loc: t.Loc, Flags: t.Flags}
			continue
		}
		if idx, ok := index[t.Lexeme]; ok {
			out[i] = lexer.Token{Kind: lexer.KindMacroArg, MacroArgIndex: idx, Loc: t.Loc, Flags: t.Flags}
		}
	}
	return out
}

func checkVAArgsUsage(p *Preprocessor, body []lexer.Token, isFunc, variadic bool, nameTok lexer.Token) {
	if variadic {
		return
	}
	for _, t := range body {
		if t.Kind == lexer.KindIdentifier && t.Lexeme == "__VA_ARGS__" {
			p.sink.Errorf(errors.KindPreprocessor, nameTok.File(), nameTok.Line(), nameTok.Column(),
				"__VA_ARGS__ used outside a variadic function-like macro")
			return
		}
	}
}

// doUndef implements #undef: clears the macro definition on its target.
func (p *Preprocessor) doUndef() {
	nameTok, ok := p.pull()
	if !ok || nameTok.Kind != lexer.KindIdentifier {
		p.errHere(errors.KindPreprocessor, "macro name must be an identifier")
		p.skipToEndOfLine()
		return
	}
	nameTok.Ident.Macro = nil
	p.skipToEndOfLine()
}

// doInclude implements #include / #include_next per §4.2: the header
// argument is scanned in header-name mode, resolved via the search path,
// and spliced in as a new frame sharing this preprocessor's identifier
// table.
func (p *Preprocessor) doInclude(next bool) {
	f := p.top()
	f.scanner.SetHeaderNameMode(true)
	headerTok, ok := p.pull()
	f.scanner.SetHeaderNameMode(false)
	if !ok || (headerTok.Kind != lexer.KindHeaderName && headerTok.Kind != lexer.KindSysHeaderName) {
		p.errHere(errors.KindPreprocessor, "#include expects \"FILENAME\" or <FILENAME>")
		p.skipToEndOfLine()
		return
	}
	p.skipToEndOfLine()

	if len(p.stack) > MaxIncludeDepth {
		p.errHere(errors.KindPreprocessor, "#include nested too deeply (max %d)", MaxIncludeDepth)
		return
	}

	quoted := headerTok.Kind == lexer.KindHeaderName
	var res *Resolution
	var found bool
	if next {
		res, found = p.opts.Search.ResolveNext(headerTok.Lexeme, f.foundAt)
	} else {
		res, found = p.opts.Search.Resolve(headerTok.Lexeme, quoted, f.dir)
	}
	if !found {
		p.errHere(errors.KindPreprocessor, "cannot find header %q", headerTok.Lexeme)
		return
	}

	included, err := source.Read(res.Path)
	if err != nil {
		p.errHere(errors.KindIO, "%v", err)
		return
	}
	p.pushFile(included, dirOf(res.Path), res)
}

func (p *Preprocessor) errHere(kind errors.Kind, format string, args ...any) {
	file, line, col := "", 0, 0
	if p.lastLoc != nil {
		file, line, col = p.lastLoc.File, p.lastLoc.Line, p.lastLoc.Column
	}
	p.sink.Errorf(kind, file, line, col, format, args...)
}
