package preprocess

import (
	"time"

	"mcc/internal/errors"
	"mcc/internal/lexer"
	"mcc/internal/source"
)

// Options controls preprocessor behavior that varies by translation
// context, per the TranslationContext design note in §9.
type Options struct {
	Trigraphs bool
	Relaxed   bool
	Search    *SearchPath
}

// frame is one open file in the #include stack.
type frame struct {
	file    *source.File
	scanner *lexer.Scanner
	dir     string      // directory containing file, for quoted-include resolution
	foundAt *Resolution // how this file was found, for #include_next
}

// pendingItem is either a real output token or a blue-paint re-enable
// marker delimiting the end of one macro's expansion, so a macro can be
// re-expanded once the pull cursor has moved past everything it produced —
// including tokens pulled from beyond the expansion, for the classic
// "expansion rescans into the following stream" case.
type pendingItem struct {
	tok        lexer.Token
	isMarker   bool
	enableNode *lexer.HashNode
}

// Preprocessor is translation phase 4: a pull-driven macro expander and
// directive executor sitting on top of the phase-3 scanner stack.
type Preprocessor struct {
	table *lexer.Table
	sink  *errors.Sink
	opts  Options

	stack   []*frame
	pending []pendingItem

	dateStr, timeStr string

	// lastLoc is the most recently pulled base-layer token's location: the
	// basis for __LINE__/__FILE__, which must reflect the use site, not any
	// expansion site, per §4.2.
	lastLoc *source.Location
}

// New creates a preprocessor rooted at the given file.
func New(root *source.File, opts Options, sink *errors.Sink) *Preprocessor {
	now := time.Now()
	p := &Preprocessor{
		table:   lexer.NewTable(),
		sink:    sink,
		opts:    opts,
		dateStr: now.Format("Jan  2 2006"),
		timeStr: now.Format("15:04:05"),
	}
	p.defineBuiltins()
	p.pushFile(root, dirOf(root.Name), nil)
	return p
}

func (p *Preprocessor) pushFile(f *source.File, dir string, found *Resolution) {
	p1 := lexer.NewPhase1(f, p.opts.Trigraphs, p.sink)
	p2 := lexer.NewPhase2(p1, p.opts.Relaxed, p.sink)
	sc := lexer.NewScanner(p2, p.table, p.sink)
	p.stack = append(p.stack, &frame{file: f, scanner: sc, dir: dir, foundAt: found})
}

func (p *Preprocessor) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Preprocessor) defineBuiltins() {
	builtins := []struct {
		name string
		kind lexer.MacroKind
	}{
		{"__FILE__", lexer.MacroBuiltinFile},
		{"__LINE__", lexer.MacroBuiltinLine},
		{"__DATE__", lexer.MacroBuiltinDate},
		{"__TIME__", lexer.MacroBuiltinTime},
	}
	for _, b := range builtins {
		node := p.table.Intern(b.name)
		node.Macro = &lexer.MacroDef{Kind: b.kind}
	}
	for name, value := range predefinedObjectMacros() {
		node := p.table.Intern(name)
		node.Macro = &lexer.MacroDef{Kind: lexer.MacroObject, Body: tokenizeLiteral(value)}
	}
}

// tokenizeLiteral builds a single-token replacement list for a predefined
// macro's numeric or empty value.
func tokenizeLiteral(value string) []lexer.Token {
	if value == "" {
		return nil
	}
	return []lexer.Token{{Kind: lexer.KindPPNumber, Lexeme: value}}
}

// predefinedObjectMacros enumerates §6's predefined macro table.
func predefinedObjectMacros() map[string]string {
	return map[string]string{
		"__STDC__":            "1",
		"__STDC_HOSTED__":     "1",
		"__STDC_VERSION__":    "201112L",
		"__STDC_UTF_16__":     "1",
		"__STDC_UTF_32__":     "1",
		"__STDC_NO_ATOMICS__": "1",
		"__STDC_NO_COMPLEX__": "1",
		"__STDC_NO_THREADS__": "1",
		"__STDC_NO_VLA__":     "1",
		"__STDC_LIB_EXT1__":   "201112L",
		"__x86_64__":          "1",
		"__amd64__":           "1",
	}
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return ""
}

// Next returns the next fully expanded, directive-free token, or a KindEOF
// token once the root translation unit is exhausted.
func (p *Preprocessor) Next() lexer.Token {
	for {
		tok, ok := p.pull()
		if !ok {
			return lexer.Token{Kind: lexer.KindEOF}
		}
		if tok.Kind != lexer.KindEOF {
			p.lastLoc = tok.Loc
		}

		if tok.Kind == lexer.KindEOF {
			if len(p.stack) <= 1 {
				return tok
			}
			p.stack = p.stack[:len(p.stack)-1]
			continue
		}

		if tok.Flags.Has(lexer.FlagStartOfLine) && (tok.Kind == lexer.KindHash || tok.Kind == lexer.KindDigraphHash) {
			p.handleDirective()
			continue
		}

		if tok.Kind == lexer.KindIdentifier && tok.Ident != nil && tok.Ident.IsMacro() && tok.Ident.ExpansionEnabled() {
			if p.expandAt(tok) {
				continue
			}
		}

		return tok
	}
}

// pull returns the next item from pending if any, re-enabling blue-paint
// markers transparently; otherwise it pulls a fresh token directly from the
// top scanner frame. An exhausted frame yields its EOF token; Next is what
// pops it.
func (p *Preprocessor) pull() (lexer.Token, bool) {
	for {
		if len(p.pending) > 0 {
			item := p.pending[0]
			p.pending = p.pending[1:]
			if item.isMarker {
				item.enableNode.Enable()
				continue
			}
			return item.tok, true
		}
		f := p.top()
		if f == nil {
			return lexer.Token{}, false
		}
		tok := f.scanner.Next()
		if tok.Kind == lexer.KindEOF {
			return tok, true
		}
		return tok, true
	}
}

// peekToken looks at the next item without consuming it.
func (p *Preprocessor) peekToken() (lexer.Token, bool) {
	tok, ok := p.pull()
	if !ok {
		return tok, false
	}
	p.pending = append([]pendingItem{{tok: tok}}, p.pending...)
	return tok, true
}

// pushResult prepends expanded output tokens to pending, followed by a
// marker that re-enables node once every one of those tokens (and anything
// their own rescanning produces) has been pulled past.
func (p *Preprocessor) pushResult(node *lexer.HashNode, toks []lexer.Token) {
	items := make([]pendingItem, 0, len(toks)+1)
	for _, t := range toks {
		items = append(items, pendingItem{tok: t})
	}
	items = append(items, pendingItem{isMarker: true, enableNode: node})
	p.pending = append(items, p.pending...)
}
