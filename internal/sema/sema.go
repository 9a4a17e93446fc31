// Package sema implements the single post-order semantic analysis walk
// described by §4.4: type inference over every expression, the authoritative
// &(*e) elision pass, and break/continue loop-context enforcement.
package sema

import (
	"mcc/internal/errors"
	"mcc/internal/parser"
)

// Analyzer threads the diagnostic sink and loop-context flag through one
// post-order AST walk.
type Analyzer struct {
	sink   *errors.Sink
	inLoop int
}

// New creates an Analyzer reporting into sink.
func New(sink *errors.Sink) *Analyzer {
	return &Analyzer{sink: sink}
}

// Analyze walks every function and top-level declaration in tu.
func (a *Analyzer) Analyze(tu *parser.TranslationUnit) {
	for _, decl := range tu.Declarations {
		a.analyzeDeclaration(decl)
	}
	for _, fn := range tu.Functions {
		a.analyzeFunction(fn)
	}
}

func (a *Analyzer) analyzeFunction(fn *parser.Function) {
	a.analyzeCompound(fn.Body)
}

func (a *Analyzer) analyzeDeclaration(d *parser.Declaration) {
	for _, init := range d.Inits {
		if init.Init != nil {
			a.analyzeExpr(init.Init)
		}
	}
}

// analyzeStmt dispatches on statement kind, threading the in-loop flag
// through iteration statements.
func (a *Analyzer) analyzeStmt(s parser.Stmt) {
	switch n := s.(type) {
	case *parser.ExprStmt:
		a.analyzeExpr(n.X)
	case *parser.NullStmt:
	case *parser.Compound:
		a.analyzeCompound(n)
	case *parser.If:
		a.analyzeExpr(n.Cond)
		a.analyzeStmt(n.Then)
		if n.Else != nil {
			a.analyzeStmt(n.Else)
		}
	case *parser.Loop:
		a.analyzeLoop(n)
	case *parser.Jump:
		a.analyzeJump(n)
	case *parser.Declaration:
		a.analyzeDeclaration(n)
	}
}

func (a *Analyzer) analyzeCompound(c *parser.Compound) {
	for _, s := range c.Stmts {
		a.analyzeStmt(s)
	}
}

func (a *Analyzer) analyzeLoop(l *parser.Loop) {
	switch l.Kind {
	case parser.LoopForDecl:
		a.analyzeStmt(l.Init)
	case parser.LoopForExpr:
		if l.InitExpr != nil {
			a.analyzeExpr(l.InitExpr)
		}
	}
	if l.Cond != nil {
		a.analyzeExpr(l.Cond)
	}
	if l.Post != nil {
		a.analyzeExpr(l.Post)
	}
	a.inLoop++
	a.analyzeStmt(l.Body)
	a.inLoop--
}

// analyzeJump enforces "break/continue only inside iteration statements" by
// threading the in-loop flag (§4.4). The parser already rejects this
// syntactically via loopDepth; this pass is the authoritative, AST-driven
// enforcement the analyzer owns per spec.
func (a *Analyzer) analyzeJump(j *parser.Jump) {
	switch j.Kind {
	case parser.JumpReturn:
		if j.Value != nil {
			a.analyzeExpr(j.Value)
		}
	case parser.JumpBreak, parser.JumpContinue:
		if a.inLoop == 0 {
			a.errorAt(j, "break/continue outside of a loop")
		}
	}
}

func (a *Analyzer) errorAt(n parser.Node, format string, args ...any) {
	loc := n.Loc()
	file, line, col := "", 0, 0
	if loc != nil {
		file, line, col = loc.File, loc.Line, loc.Column
	}
	a.sink.Errorf(errors.KindSemantic, file, line, col, format, args...)
}

// analyzeExpr infers exprType post-order and performs the &(*e) elision
// fusion, per §4.4's list of per-node-kind rules.
func (a *Analyzer) analyzeExpr(e parser.Expr) {
	switch n := e.(type) {
	case *parser.IntLiteral:
		n.SetExprType(parser.IntType())
	case *parser.Ident:
		if n.Symbol != nil {
			n.SetExprType(n.Symbol.Type)
		}
	case *parser.Unary:
		a.analyzeUnary(n)
	case *parser.Binary:
		a.analyzeBinary(n)
	case *parser.Ternary:
		a.analyzeTernary(n)
	case *parser.Assign:
		a.analyzeAssign(n)
	case *parser.PostfixIncDec:
		a.analyzeExpr(n.Operand)
		n.SetExprType(n.Operand.ExprType())
	case *parser.Call:
		a.analyzeCall(n)
	}
}

func (a *Analyzer) analyzeUnary(n *parser.Unary) {
	a.analyzeExpr(n.Operand)
	opType := n.Operand.ExprType()
	switch n.Op {
	case "-", "~":
		if opType != nil && !opType.IsArithmetic() {
			a.errorAt(n, "operand of unary %q must be arithmetic", n.Op)
		}
		n.SetExprType(opType)
	case "!":
		n.SetExprType(parser.IntType())
	case "&":
		n.SetExprType(parser.PointerTo(opType))
		// &(*e): both nodes were flagged Elide at parse time; the
		// authoritative fusion collapses the pair's type to e's operand type.
		if n.Elide {
			if inner, ok := n.Operand.(*parser.Unary); ok && inner.Op == "*" {
				n.SetExprType(inner.Operand.ExprType())
			}
		}
	case "*":
		if opType == nil {
			break
		}
		if !opType.IsPointer() {
			a.errorAt(n, "operand of unary '*' must be a pointer")
			break
		}
		n.SetExprType(opType.Pointee)
		if n.Elide {
			if inner, ok := n.Operand.(*parser.Unary); ok && inner.Op == "&" {
				n.SetExprType(inner.Operand.ExprType())
			}
		}
	}
}

func (a *Analyzer) analyzeBinary(n *parser.Binary) {
	a.analyzeExpr(n.Left)
	a.analyzeExpr(n.Right)
	lt, rt := n.Left.ExprType(), n.Right.ExprType()
	if lt != nil && rt != nil && (!lt.IsArithmetic() || !rt.IsArithmetic()) {
		a.errorAt(n, "operands of %q must both be int", n.Op)
	}
	n.SetExprType(parser.IntType())
}

func (a *Analyzer) analyzeTernary(n *parser.Ternary) {
	a.analyzeExpr(n.Cond)
	a.analyzeExpr(n.Then)
	a.analyzeExpr(n.Else)
	tt, et := n.Then.ExprType(), n.Else.ExprType()
	if tt != nil && et != nil && !tt.Equal(et) {
		a.errorAt(n, "ternary branches have mismatched types %s and %s", tt, et)
	}
	n.SetExprType(tt)
}

func (a *Analyzer) analyzeAssign(n *parser.Assign) {
	a.analyzeExpr(n.Target)
	a.analyzeExpr(n.Value)
	tt, vt := n.Target.ExprType(), n.Value.ExprType()
	if n.Op != "=" && tt != nil && !tt.IsArithmetic() {
		a.errorAt(n, "compound assignment %q requires an arithmetic target", n.Op)
	}
	if tt != nil && vt != nil && !tt.Equal(vt) {
		a.errorAt(n, "assignment type mismatch: %s = %s", tt, vt)
	}
	n.SetExprType(tt)
}

func (a *Analyzer) analyzeCall(n *parser.Call) {
	a.analyzeExpr(n.Callee)
	for _, arg := range n.Args {
		a.analyzeExpr(arg)
	}
	ct := n.Callee.ExprType()
	if ct == nil {
		return
	}
	if !ct.IsFunction() {
		a.errorAt(n, "call target is not a function")
		return
	}
	// TODO(arity): argument count and per-argument types against the
	// callee's declared parameters are not checked, matching the documented
	// gap this analyzer inherits (resolved Open Question (a)).
	n.SetExprType(ct.Return)
}
