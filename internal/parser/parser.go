// Package parser implements the Pratt-style expression parser, the
// declarator token-stack replay, and the lexically scoped symbol table
// described by §4.3. Errors are reported through a diagnostic sink but
// parsing itself remains panic-mode on syntax errors, a known deficiency
// §9 calls out for a future statement-level-resynchronization rewrite.
package parser

import (
	"fmt"

	"mcc/internal/errors"
	"mcc/internal/lexer"
)

// TokenSource is anything the parser can pull fully preprocessed tokens
// from — satisfied by *preprocess.Preprocessor without creating an import
// cycle back into that package.
type TokenSource interface {
	Next() lexer.Token
}

// Precedence levels, low to high, per §4.3.
const (
	precNone = iota
	precComma
	precAssign
	precConditional
	precLogOr
	precLogAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[lexer.Kind]int{
	lexer.KindPipePipe:  precLogOr,
	lexer.KindAmpAmp:    precLogAnd,
	lexer.KindPipe:      precBitOr,
	lexer.KindCaret:     precBitXor,
	lexer.KindAmp:       precBitAnd,
	lexer.KindEqEq:      precEquality,
	lexer.KindBangEq:    precEquality,
	lexer.KindLess:      precRelational,
	lexer.KindGreater:   precRelational,
	lexer.KindLessEq:    precRelational,
	lexer.KindGreaterEq: precRelational,
	lexer.KindShl:       precShift,
	lexer.KindShr:       precShift,
	lexer.KindPlus:      precAdditive,
	lexer.KindMinus:     precAdditive,
	lexer.KindStar:      precMultiplicative,
	lexer.KindSlash:     precMultiplicative,
	lexer.KindPercent:   precMultiplicative,
}

var binaryOpText = map[lexer.Kind]string{
	lexer.KindPipePipe: "||", lexer.KindAmpAmp: "&&", lexer.KindPipe: "|",
	lexer.KindCaret: "^", lexer.KindAmp: "&", lexer.KindEqEq: "==",
	lexer.KindBangEq: "!=", lexer.KindLess: "<", lexer.KindGreater: ">",
	lexer.KindLessEq: "<=", lexer.KindGreaterEq: ">=", lexer.KindShl: "<<",
	lexer.KindShr: ">>", lexer.KindPlus: "+", lexer.KindMinus: "-",
	lexer.KindStar: "*", lexer.KindSlash: "/", lexer.KindPercent: "%",
	lexer.KindTilde: "~", lexer.KindBang: "!",
}

var assignOps = map[lexer.Kind]string{
	lexer.KindEq: "=", lexer.KindStarEq: "*=", lexer.KindSlashEq: "/=",
	lexer.KindPercentEq: "%=", lexer.KindPlusEq: "+=", lexer.KindMinusEq: "-=",
	lexer.KindShlEq: "<<=", lexer.KindShrEq: ">>=", lexer.KindAmpEq: "&=",
	lexer.KindCaretEq: "^=", lexer.KindPipeEq: "|=",
}

// Parser holds the one-token lookahead cursor, the diagnostic sink, and the
// symbol table threaded through declarator and statement parsing.
type Parser struct {
	src  TokenSource
	sink *errors.Sink
	Sym  *SymbolTable

	tok, ahead lexer.Token
	haveAhead  bool
	loopDepth  int
}

// New creates a Parser pulling from src.
func New(src TokenSource, sink *errors.Sink) *Parser {
	p := &Parser{src: src, sink: sink, Sym: NewSymbolTable()}
	p.tok = p.src.Next()
	return p
}

func (p *Parser) advance() lexer.Token {
	prev := p.tok
	if p.haveAhead {
		p.tok = p.ahead
		p.haveAhead = false
	} else {
		p.tok = p.src.Next()
	}
	return prev
}

func (p *Parser) peekAhead() lexer.Token {
	if !p.haveAhead {
		p.ahead = p.src.Next()
		p.haveAhead = true
	}
	return p.ahead
}

// errorAt panics with a Diagnostic, implementing the panic-mode recovery
// §4.3 and §9 describe as the current (unfixed) behavior.
func (p *Parser) errorAt(tok lexer.Token, format string, args ...any) {
	d := errors.New(errors.KindSyntax, fmt.Sprintf(format, args...), tok.File(), tok.Line(), tok.Column())
	p.sink.Report(d)
	panic(d)
}

func (p *Parser) expect(kind lexer.Kind, what string) lexer.Token {
	if p.tok.Kind != kind {
		p.errorAt(p.tok, "expected %s, found %q", what, p.tok.Lexeme)
	}
	return p.advance()
}

// ParseTranslationUnit parses the whole token stream. Syntax errors abort
// via panic/recover at this boundary, matching the "currently fatal" parser
// failure semantics of §4.5.
func (p *Parser) ParseTranslationUnit() (tu *TranslationUnit, err error) {
	defer func() {
		if r := recover(); r != nil {
			if d, ok := r.(*errors.Diagnostic); ok {
				err = d
				return
			}
			panic(r)
		}
	}()
	tu = &TranslationUnit{}
	for p.tok.Kind != lexer.KindEOF {
		p.parseExternalDeclaration(tu)
	}
	return tu, nil
}

// ---- Expressions ----

// ParseExpression parses a full assignment-precedence expression (the
// comma operator itself is not part of this subset's grammar).
func (p *Parser) ParseExpression() Expr { return p.parseAssignment() }

// parseAssignment parses the assignment/conditional level, both
// right-associative: `a = b = c` and `a ? b : c ? d : e` both nest on the
// right.
func (p *Parser) parseAssignment() Expr {
	left := p.parseConditional()
	if op, ok := assignOps[p.tok.Kind]; ok {
		opTok := p.advance()
		if !left.Lvalue() {
			p.errorAt(opTok, "operand must be an lvalue")
		}
		value := p.parseAssignment()
		return &Assign{exprBase: exprBase{loc: opTok.Loc}, Op: op, Target: left, Value: value}
	}
	return left
}

func (p *Parser) parseConditional() Expr {
	cond := p.parseBinary(precLogOr)
	if p.tok.Kind == lexer.KindQuestion {
		qTok := p.advance()
		then := p.ParseExpression()
		p.expect(lexer.KindColon, "':'")
		els := p.parseAssignment()
		return &Ternary{exprBase: exprBase{loc: qTok.Loc}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

// parseBinary implements Pratt precedence climbing for every
// left-associative binary level between logical-or and multiplicative.
func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		prec, ok := binaryPrec[p.tok.Kind]
		if !ok || prec < minPrec {
			return left
		}
		opTok := p.advance()
		right := p.parseBinary(prec + 1)
		left = &Binary{exprBase: exprBase{loc: opTok.Loc}, Op: binaryOpText[opTok.Kind], Left: left, Right: right}
	}
}

// parseUnary handles -e, ~e, !e, *e, &e, ++e, --e. Pre-increment/decrement
// desugar to compound assignment at parse time per §4.3: `++e` becomes
// `e += 1`.
func (p *Parser) parseUnary() Expr {
	switch p.tok.Kind {
	case lexer.KindMinus, lexer.KindTilde, lexer.KindBang:
		opTok := p.advance()
		operand := p.parseUnary()
		return &Unary{exprBase: exprBase{loc: opTok.Loc}, Op: binaryOpText[opTok.Kind], Operand: operand}
	case lexer.KindStar:
		opTok := p.advance()
		operand := p.parseUnary()
		u := &Unary{exprBase: exprBase{loc: opTok.Loc, isLvalue: true}, Op: "*", Operand: operand}
		elideDerefOfAddr(u)
		return u
	case lexer.KindAmp:
		opTok := p.advance()
		operand := p.parseUnary()
		if !operand.Lvalue() {
			p.errorAt(opTok, "operand of '&' must be an lvalue")
		}
		u := &Unary{exprBase: exprBase{loc: opTok.Loc}, Op: "&", Operand: operand}
		elideAddrOfDeref(u)
		return u
	case lexer.KindPlusPlus:
		opTok := p.advance()
		operand := p.parseUnary()
		if !operand.Lvalue() {
			p.errorAt(opTok, "operand must be an lvalue")
		}
		one := &IntLiteral{exprBase: exprBase{loc: opTok.Loc}, Value: 1}
		return &Assign{exprBase: exprBase{loc: opTok.Loc}, Op: "+=", Target: operand, Value: one}
	case lexer.KindMinusMinus:
		opTok := p.advance()
		operand := p.parseUnary()
		if !operand.Lvalue() {
			p.errorAt(opTok, "operand must be an lvalue")
		}
		one := &IntLiteral{exprBase: exprBase{loc: opTok.Loc}, Value: 1}
		return &Assign{exprBase: exprBase{loc: opTok.Loc}, Op: "-=", Target: operand, Value: one}
	default:
		return p.parsePostfix()
	}
}

// elideDerefOfAddr fuses *(&x) into x, flagging both nodes per §4.4 — done
// eagerly here as a parse-time convenience; the analyzer performs the
// authoritative pass since it alone knows every node's final shape.
func elideDerefOfAddr(u *Unary) {
	if inner, ok := u.Operand.(*Unary); ok && inner.Op == "&" {
		u.Elide = true
		inner.Elide = true
	}
}

func elideAddrOfDeref(u *Unary) {
	if inner, ok := u.Operand.(*Unary); ok && inner.Op == "*" {
		u.Elide = true
		inner.Elide = true
	}
}

// parsePostfix handles call, ++, -- at postfix precedence.
func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for {
		switch p.tok.Kind {
		case lexer.KindLParen:
			p.advance()
			var args []Expr
			if p.tok.Kind != lexer.KindRParen {
				args = append(args, p.parseAssignment())
				for p.tok.Kind == lexer.KindComma {
					p.advance()
					args = append(args, p.parseAssignment())
				}
			}
			rparen := p.expect(lexer.KindRParen, "')'")
			e = &Call{exprBase: exprBase{loc: rparen.Loc}, Callee: e, Args: args}
		case lexer.KindPlusPlus:
			opTok := p.advance()
			if !e.Lvalue() {
				p.errorAt(opTok, "operand must be an lvalue")
			}
			e = &PostfixIncDec{exprBase: exprBase{loc: opTok.Loc}, Op: "++", Operand: e}
		case lexer.KindMinusMinus:
			opTok := p.advance()
			if !e.Lvalue() {
				p.errorAt(opTok, "operand must be an lvalue")
			}
			e = &PostfixIncDec{exprBase: exprBase{loc: opTok.Loc}, Op: "--", Operand: e}
		default:
			return e
		}
	}
}

// parsePrimary handles identifier, integer literal, and parenthesized
// expression primaries per §4.3.
func (p *Parser) parsePrimary() Expr {
	switch p.tok.Kind {
	case lexer.KindIdentifier:
		tok := p.advance()
		sym := p.Sym.Lookup(tok.Lexeme)
		if sym == nil {
			p.errorAt(tok, "undeclared identifier %q", tok.Lexeme)
		}
		return &Ident{exprBase: exprBase{loc: tok.Loc, isLvalue: true}, Name: tok.Lexeme, Symbol: sym}
	case lexer.KindInteger:
		tok := p.advance()
		return &IntLiteral{exprBase: exprBase{loc: tok.Loc}, Value: tok.IntValue}
	case lexer.KindLParen:
		p.advance()
		e := p.ParseExpression()
		p.expect(lexer.KindRParen, "')'")
		return e
	default:
		p.errorAt(p.tok, "expected expression, found %q", p.tok.Lexeme)
		return nil
	}
}

// ---- Declarators ----

// parseDeclarator implements the recursive declarator grammar from §4.3,
// grounded on the original's parser.c declarator loop and, for the
// parenthesized-group case, the classic recursive-descent trick of
// threading a placeholder *Type through the inner parse and back-patching
// it once the group's own trailing postfix is known. This is what lets
// "int *(*f)(int)" — pointer to function(int) returning pointer to int —
// parse correctly: the '*' before the group wraps the function type that
// the group eventually turns out to be, not whatever sits inside it.
func (p *Parser) parseDeclarator(base *Type) *Declarator {
	name, paramNames, paramSymbols, t := p.parseDeclaratorType(base)
	return &Declarator{Name: name, Type: t, ParamNames: paramNames, ParamSymbols: paramSymbols}
}

// parseDeclaratorType parses one declarator against base, recursing into a
// parenthesized inner declarator when present. It returns the declared
// name, the parameter names/symbols captured at whichever point in the
// declarator actually carries a function's parameter list (so a plain
// "f(int)" declarator reports them, while a grouped, non-function result
// like "(*fp)(void)" leaves them unset — callers only consult them when the
// final type is itself a function), and the fully built type.
func (p *Parser) parseDeclaratorType(base *Type) (name string, paramNames []string, paramSymbols []*Symbol, t *Type) {
	for p.tok.Kind == lexer.KindStar {
		p.advance()
		base = PointerTo(base)
	}

	if p.tok.Kind == lexer.KindLParen {
		p.advance()
		// The inner declarator's base isn't known yet — it depends on the
		// postfix that follows this group's closing ')' — so recurse against
		// an empty placeholder and fill it in afterward. Every pointer the
		// recursive call wrapped around the placeholder keeps pointing at the
		// same *Type value, so mutating its fields in place retroactively
		// completes the type the recursion already returned.
		placeholder := &Type{}
		innerName, innerParamNames, innerParamSymbols, inner := p.parseDeclaratorType(placeholder)
		p.expect(lexer.KindRParen, "')'")
		suffixParamNames, suffixParamSymbols, suffix := p.parseDeclaratorSuffix(base)
		*placeholder = *suffix

		name = innerName
		t = inner
		if suffix.IsFunction() {
			paramNames, paramSymbols = suffixParamNames, suffixParamSymbols
		} else {
			paramNames, paramSymbols = innerParamNames, innerParamSymbols
		}
		return name, paramNames, paramSymbols, t
	}

	if p.tok.Kind == lexer.KindRParen || p.tok.Kind == lexer.KindComma {
		// Abstract declarator: an unnamed parameter such as the "int" in
		// "int f(int)" has no name and no suffix.
		return "", nil, nil, base
	}
	nameTok := p.expect(lexer.KindIdentifier, "identifier")
	paramNames, paramSymbols, t = p.parseDeclaratorSuffix(base)
	return nameTok.Lexeme, paramNames, paramSymbols, t
}

// parseDeclaratorSuffix applies the trailing "(params)" function suffix, if
// one is present, to base; this subset has no array suffix.
func (p *Parser) parseDeclaratorSuffix(base *Type) (paramNames []string, paramSymbols []*Symbol, t *Type) {
	if p.tok.Kind != lexer.KindLParen {
		return nil, nil, base
	}
	p.advance()
	p.Sym.Push()
	var params []*Type
	if p.tok.Kind != lexer.KindRParen && !(p.tok.Kind == lexer.KindKwVoid && p.peekAhead().Kind == lexer.KindRParen) {
		pt, pn, ps := p.parseParamDecl()
		params = append(params, pt)
		paramNames = append(paramNames, pn)
		paramSymbols = append(paramSymbols, ps)
		for p.tok.Kind == lexer.KindComma {
			p.advance()
			pt, pn, ps := p.parseParamDecl()
			params = append(params, pt)
			paramNames = append(paramNames, pn)
			paramSymbols = append(paramSymbols, ps)
		}
	} else if p.tok.Kind == lexer.KindKwVoid {
		p.advance()
	}
	p.expect(lexer.KindRParen, "')'")
	p.Sym.Pop()
	return paramNames, paramSymbols, FuncType(base, params)
}

func (p *Parser) parseParamDecl() (*Type, string, *Symbol) {
	base := p.parseTypeSpecifier()
	d := p.parseDeclarator(base)
	sym := p.Sym.Declare(d.Name, d.Type)
	return d.Type, d.Name, sym
}

// parseTypeSpecifier recognizes the int/void base types this subset
// supports; anything else is a syntax error.
func (p *Parser) parseTypeSpecifier() *Type {
	switch p.tok.Kind {
	case lexer.KindKwInt:
		p.advance()
		return IntType()
	case lexer.KindKwVoid:
		p.advance()
		return VoidType()
	default:
		p.errorAt(p.tok, "expected a type specifier, found %q", p.tok.Lexeme)
		return nil
	}
}

// isTypeStart reports whether tok begins a declaration, for statement-level
// dispatch between declarations and expression statements.
func isTypeStart(k lexer.Kind) bool {
	return k == lexer.KindKwInt || k == lexer.KindKwVoid
}
