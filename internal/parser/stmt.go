package parser

import "mcc/internal/lexer"

// parseExternalDeclaration parses one top-level declaration. Per §4.3, if
// the sole init-declarator's body follows ({ ... }), it becomes a function
// definition (which must be the last init-declarator in its declaration);
// otherwise it's an ordinary (possibly multi-declarator) global declaration.
func (p *Parser) parseExternalDeclaration(tu *TranslationUnit) {
	startTok := p.tok
	base := p.parseTypeSpecifier()
	first := p.parseDeclarator(base)
	p.declareGlobal(first)

	if p.tok.Kind == lexer.KindLBrace {
		if !first.Type.IsFunction() {
			p.errorAt(p.tok, "only a function declarator may have a body")
		}
		p.Sym.Push()
		paramSymbols := make([]*Symbol, len(first.ParamNames))
		for i, name := range first.ParamNames {
			paramSymbols[i] = p.Sym.Declare(name, first.Type.Params[i])
		}
		p.loopDepth = 0
		body := p.parseCompoundBody()
		p.Sym.Pop()
		tu.Functions = append(tu.Functions, &Function{
			Name: first.Name, Type: first.Type, ParamNames: first.ParamNames,
			ParamSymbols: paramSymbols, Body: body, Loc: startTok.Loc,
		})
		return
	}

	decl := &Declaration{stmtBase: stmtBase{loc: startTok.Loc}, BaseType: base}
	decl.Inits = append(decl.Inits, p.finishInitDeclarator(first))
	for p.tok.Kind == lexer.KindComma {
		p.advance()
		d := p.parseDeclarator(base)
		p.declareGlobal(d)
		decl.Inits = append(decl.Inits, p.finishInitDeclarator(d))
	}
	p.expect(lexer.KindSemicolon, "';'")
	tu.Declarations = append(tu.Declarations, decl)
}

func (p *Parser) declareGlobal(d *Declarator) {
	p.Sym.Declare(d.Name, d.Type)
}

// finishInitDeclarator consumes an optional `= expr` initializer after a
// declarator already parsed and declared.
func (p *Parser) finishInitDeclarator(d *Declarator) *InitDeclarator {
	id := &InitDeclarator{Declarator: d, Symbol: p.Sym.Lookup(d.Name)}
	if p.tok.Kind == lexer.KindEq {
		p.advance()
		id.Init = p.ParseExpression()
	}
	return id
}

// parseCompoundBody parses a '{' ... '}' block without opening its own
// symbol-table scope — used for a function body, whose scope is the
// parameter scope already pushed by the caller.
func (p *Parser) parseCompoundBody() *Compound {
	lbrace := p.expect(lexer.KindLBrace, "'{'")
	c := &Compound{stmtBase: stmtBase{loc: lbrace.Loc}}
	for p.tok.Kind != lexer.KindRBrace && p.tok.Kind != lexer.KindEOF {
		c.Stmts = append(c.Stmts, p.parseBlockItem())
	}
	p.expect(lexer.KindRBrace, "'}'")
	return c
}

// parseCompound parses a '{' ... '}' block that owns its own scope.
func (p *Parser) parseCompound() *Compound {
	p.Sym.Push()
	lbrace := p.tok
	c := &Compound{stmtBase: stmtBase{loc: lbrace.Loc}}
	p.expect(lexer.KindLBrace, "'{'")
	for p.tok.Kind != lexer.KindRBrace && p.tok.Kind != lexer.KindEOF {
		c.Stmts = append(c.Stmts, p.parseBlockItem())
	}
	p.expect(lexer.KindRBrace, "'}'")
	c.PopCount = p.Sym.Pop()
	return c
}

// parseBlockItem parses either a local declaration or a statement.
func (p *Parser) parseBlockItem() Stmt {
	if isTypeStart(p.tok.Kind) {
		return p.parseLocalDeclaration()
	}
	return p.parseStatement()
}

func (p *Parser) parseLocalDeclaration() Stmt {
	startTok := p.tok
	base := p.parseTypeSpecifier()
	decl := &Declaration{stmtBase: stmtBase{loc: startTok.Loc}, BaseType: base}
	d := p.parseDeclarator(base)
	p.Sym.Declare(d.Name, d.Type)
	decl.Inits = append(decl.Inits, p.finishInitDeclarator(d))
	for p.tok.Kind == lexer.KindComma {
		p.advance()
		d := p.parseDeclarator(base)
		p.Sym.Declare(d.Name, d.Type)
		decl.Inits = append(decl.Inits, p.finishInitDeclarator(d))
	}
	p.expect(lexer.KindSemicolon, "';'")
	return decl
}

// parseStatement dispatches on the leading token, per §4.3's "straightforward
// recursive descent".
func (p *Parser) parseStatement() Stmt {
	switch p.tok.Kind {
	case lexer.KindLBrace:
		return p.parseCompound()
	case lexer.KindSemicolon:
		tok := p.advance()
		return &NullStmt{stmtBase{loc: tok.Loc}}
	case lexer.KindKwIf:
		return p.parseIf()
	case lexer.KindKwWhile:
		return p.parseWhile()
	case lexer.KindKwDo:
		return p.parseDoWhile()
	case lexer.KindKwFor:
		return p.parseFor()
	case lexer.KindKwReturn:
		return p.parseReturn()
	case lexer.KindKwBreak:
		tok := p.advance()
		if p.loopDepth == 0 {
			p.errorAt(tok, "'break' outside of a loop")
		}
		p.expect(lexer.KindSemicolon, "';'")
		return &Jump{stmtBase: stmtBase{loc: tok.Loc}, Kind: JumpBreak}
	case lexer.KindKwContinue:
		tok := p.advance()
		if p.loopDepth == 0 {
			p.errorAt(tok, "'continue' outside of a loop")
		}
		p.expect(lexer.KindSemicolon, "';'")
		return &Jump{stmtBase: stmtBase{loc: tok.Loc}, Kind: JumpContinue}
	default:
		tok := p.tok
		e := p.ParseExpression()
		p.expect(lexer.KindSemicolon, "';'")
		return &ExprStmt{stmtBase: stmtBase{loc: tok.Loc}, X: e}
	}
}

func (p *Parser) parseIf() Stmt {
	ifTok := p.advance()
	p.expect(lexer.KindLParen, "'('")
	cond := p.ParseExpression()
	p.expect(lexer.KindRParen, "')'")
	then := p.parseStatement()
	var els Stmt
	if p.tok.Kind == lexer.KindKwElse {
		p.advance()
		els = p.parseStatement()
	}
	return &If{stmtBase: stmtBase{loc: ifTok.Loc}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() Stmt {
	tok := p.advance()
	p.expect(lexer.KindLParen, "'('")
	cond := p.ParseExpression()
	p.expect(lexer.KindRParen, "')'")
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	return &Loop{stmtBase: stmtBase{loc: tok.Loc}, Kind: LoopWhile, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() Stmt {
	tok := p.advance()
	p.loopDepth++
	body := p.parseStatement()
	p.loopDepth--
	p.expect(lexer.KindKwWhile, "'while'")
	p.expect(lexer.KindLParen, "'('")
	cond := p.ParseExpression()
	p.expect(lexer.KindRParen, "')'")
	p.expect(lexer.KindSemicolon, "';'")
	return &Loop{stmtBase: stmtBase{loc: tok.Loc}, Kind: LoopDoWhile, Cond: cond, Body: body}
}

// parseFor opens a scope spanning the whole loop when the init clause is a
// declaration, per §4.3.
func (p *Parser) parseFor() Stmt {
	tok := p.advance()
	p.expect(lexer.KindLParen, "'('")

	loop := &Loop{stmtBase: stmtBase{loc: tok.Loc}}
	scoped := isTypeStart(p.tok.Kind)
	if scoped {
		p.Sym.Push()
		loop.Kind = LoopForDecl
		loop.Init = p.parseLocalDeclaration()
	} else {
		loop.Kind = LoopForExpr
		if p.tok.Kind != lexer.KindSemicolon {
			loop.InitExpr = p.ParseExpression()
		}
		p.expect(lexer.KindSemicolon, "';'")
	}

	if p.tok.Kind != lexer.KindSemicolon {
		loop.Cond = p.ParseExpression()
	}
	p.expect(lexer.KindSemicolon, "';'")

	if p.tok.Kind != lexer.KindRParen {
		loop.Post = p.ParseExpression()
	}
	p.expect(lexer.KindRParen, "')'")

	p.loopDepth++
	loop.Body = p.parseStatement()
	p.loopDepth--

	if scoped {
		p.Sym.Pop()
	}
	return loop
}

func (p *Parser) parseReturn() Stmt {
	tok := p.advance()
	j := &Jump{stmtBase: stmtBase{loc: tok.Loc}, Kind: JumpReturn}
	if p.tok.Kind != lexer.KindSemicolon {
		j.Value = p.ParseExpression()
	}
	p.expect(lexer.KindSemicolon, "';'")
	return j
}
