// Package lower walks the parser's AST, after semantic analysis has
// populated every expression's resolved type, and builds the SSA IR per
// §4.5: one ir.Function per AST function, with variable reads/writes routed
// through the Braun-style builder in internal/ir.
package lower

import (
	"mcc/internal/ir"
	"mcc/internal/parser"
)

// Lowerer holds the whole-module state shared across functions: the symbol
// table mapping function name to its already-created ir.Function (so calls
// to a function defined later in the file still resolve), per §4.5 step 1.
type Lowerer struct {
	module      *ir.Module
	funcsByName map[string]*ir.Function
}

// New creates a Lowerer.
func New() *Lowerer {
	return &Lowerer{module: &ir.Module{}, funcsByName: map[string]*ir.Function{}}
}

// Lower translates every function definition in tu into IR and returns the
// completed module. Top-level (non-function) declarations carry no runtime
// value in this front end (no codegen stage, §1 Non-goals) and are only
// consulted for the type information lowering needs.
func (l *Lowerer) Lower(tu *parser.TranslationUnit) *ir.Module {
	for i, fn := range tu.Functions {
		paramTypes := make([]*ir.Type, len(fn.Type.Params))
		for j, t := range fn.Type.Params {
			paramTypes[j] = lowerType(t)
		}
		irFn := ir.NewFunction(i, fn.Name, paramTypes, lowerType(fn.Type.Return))
		l.funcsByName[fn.Name] = irFn
		l.module.Functions = append(l.module.Functions, irFn)
	}
	for i, fn := range tu.Functions {
		l.lowerFunctionBody(fn, l.module.Functions[i])
	}
	return l.module
}

func lowerType(t *parser.Type) *ir.Type {
	if t == nil {
		return ir.VoidType()
	}
	switch t.Kind {
	case parser.TypeInt:
		return ir.IntType(32)
	case parser.TypeVoid:
		return ir.VoidType()
	case parser.TypePointer:
		return ir.PointerType(lowerType(t.Pointee))
	case parser.TypeFunction:
		return ir.PointerType(ir.VoidType())
	default:
		return ir.VoidType()
	}
}

// funcState is the per-function lowering cursor: the current insertion
// block plus the symbol→VarID mapping the IR builder's variable table keys
// on.
type funcState struct {
	l          *Lowerer
	fn         *ir.Function
	cur        *ir.BasicBlock
	varIDs     map[*parser.Symbol]ir.VarID
	nextVar    ir.VarID
	nextSynth  ir.VarID
	breakTo    []*ir.BasicBlock
	continueTo []*ir.BasicBlock
}

func (fs *funcState) varID(sym *parser.Symbol) ir.VarID {
	if id, ok := fs.varIDs[sym]; ok {
		return id
	}
	id := fs.nextVar
	fs.nextVar++
	fs.varIDs[sym] = id
	return id
}

func (l *Lowerer) lowerFunctionBody(fn *parser.Function, irFn *ir.Function) {
	fs := &funcState{l: l, fn: irFn, varIDs: map[*parser.Symbol]ir.VarID{}, nextSynth: 1 << 20}
	entry := irFn.NewBlock()
	irFn.SealBlock(entry) // entry has no predecessors: seal immediately
	fs.cur = entry

	for i, sym := range fn.ParamSymbols {
		v := fs.cur.EmitParameter(i, irFn.ParamTypes[i])
		irFn.WriteVariable(fs.varID(sym), fs.cur, ir.VRegParam(v))
	}

	fs.lowerCompound(fn.Body)

	if !fs.cur.Terminated {
		// Falling off the end of a function body is an implicit `return;`.
		fs.cur.EmitReturn(nil)
	}
	irFn.TryRemoveTrivialBlocks()
}

func (fs *funcState) lowerCompound(c *parser.Compound) {
	for _, s := range c.Stmts {
		fs.lowerStmt(s)
		if fs.cur.Terminated {
			return
		}
	}
}

func (fs *funcState) lowerStmt(s parser.Stmt) {
	switch n := s.(type) {
	case *parser.ExprStmt:
		fs.lowerExpr(n.X)
	case *parser.NullStmt:
	case *parser.Compound:
		fs.lowerCompound(n)
	case *parser.Declaration:
		fs.lowerDeclaration(n)
	case *parser.If:
		fs.lowerIf(n)
	case *parser.Loop:
		fs.lowerLoop(n)
	case *parser.Jump:
		fs.lowerJump(n)
	}
}

func (fs *funcState) lowerDeclaration(d *parser.Declaration) {
	for _, init := range d.Inits {
		if init.Symbol == nil {
			continue
		}
		var val ir.Parameter
		if init.Init != nil {
			val = fs.lowerExpr(init.Init)
		} else {
			val = ir.UndefParam(lowerType(init.Declarator.Type))
		}
		fs.fn.WriteVariable(fs.varID(init.Symbol), fs.cur, val)
	}
}

func (fs *funcState) lowerIf(n *parser.If) {
	cond := fs.lowerExpr(n.Cond)
	thenBlock := fs.fn.NewBlock()
	elseBlock := fs.fn.NewBlock()
	joinBlock := fs.fn.NewBlock()

	fs.cur.EmitJumpIf(cond, thenBlock, elseBlock)
	fs.fn.SealBlock(thenBlock)
	fs.fn.SealBlock(elseBlock)

	fs.cur = thenBlock
	fs.lowerStmt(n.Then)
	if !fs.cur.Terminated {
		fs.cur.EmitJump(joinBlock)
	}

	fs.cur = elseBlock
	if n.Else != nil {
		fs.lowerStmt(n.Else)
	}
	if !fs.cur.Terminated {
		fs.cur.EmitJump(joinBlock)
	}

	fs.fn.SealBlock(joinBlock)
	fs.cur = joinBlock
}

// lowerLoop handles while/do-while/for-expr/for-decl. The header block is a
// loop header with a back-edge, so per §4.5 it is sealed only once the loop
// body has been fully lowered and its final jump back to the header emitted.
func (fs *funcState) lowerLoop(n *parser.Loop) {
	switch n.Kind {
	case parser.LoopForDecl:
		fs.lowerStmt(n.Init)
	case parser.LoopForExpr:
		if n.InitExpr != nil {
			fs.lowerExpr(n.InitExpr)
		}
	}

	if n.Kind == parser.LoopDoWhile {
		fs.lowerDoWhile(n)
		return
	}

	header := fs.fn.NewBlock()
	body := fs.fn.NewBlock()
	exit := fs.fn.NewBlock()

	fs.cur.EmitJump(header)
	fs.cur = header
	if n.Cond != nil {
		cond := fs.lowerExpr(n.Cond)
		fs.cur.EmitJumpIf(cond, body, exit)
	} else {
		fs.cur.EmitJump(body)
	}
	fs.fn.SealBlock(body)

	fs.breakTo = append(fs.breakTo, exit)
	fs.continueTo = append(fs.continueTo, header)

	fs.cur = body
	fs.lowerStmt(n.Body)
	if !fs.cur.Terminated {
		if n.Post != nil {
			fs.lowerExpr(n.Post)
		}
		fs.cur.EmitJump(header)
	}
	fs.fn.SealBlock(header) // back-edge from body now known: seal last

	fs.breakTo = fs.breakTo[:len(fs.breakTo)-1]
	fs.continueTo = fs.continueTo[:len(fs.continueTo)-1]

	fs.fn.SealBlock(exit)
	fs.cur = exit
}

func (fs *funcState) lowerDoWhile(n *parser.Loop) {
	body := fs.fn.NewBlock()
	exit := fs.fn.NewBlock()

	fs.cur.EmitJump(body)
	fs.cur = body

	fs.breakTo = append(fs.breakTo, exit)
	fs.continueTo = append(fs.continueTo, body)

	fs.lowerStmt(n.Body)
	if !fs.cur.Terminated {
		cond := fs.lowerExpr(n.Cond)
		fs.cur.EmitJumpIf(cond, body, exit)
	}
	fs.fn.SealBlock(body) // back-edge from the tail condition now known

	fs.breakTo = fs.breakTo[:len(fs.breakTo)-1]
	fs.continueTo = fs.continueTo[:len(fs.continueTo)-1]

	fs.fn.SealBlock(exit)
	fs.cur = exit
}

func (fs *funcState) lowerJump(n *parser.Jump) {
	switch n.Kind {
	case parser.JumpReturn:
		if n.Value != nil {
			v := fs.lowerExpr(n.Value)
			fs.cur.EmitReturn(&v)
		} else {
			fs.cur.EmitReturn(nil)
		}
	case parser.JumpBreak:
		target := fs.breakTo[len(fs.breakTo)-1]
		fs.cur.EmitJump(target)
	case parser.JumpContinue:
		target := fs.continueTo[len(fs.continueTo)-1]
		fs.cur.EmitJump(target)
	}
}

// lowerExpr lowers e and returns the Parameter naming its value. Lvalue
// target expressions (identifier, *e) are handled specially by
// lowerAssign/lowerAddr rather than here.
func (fs *funcState) lowerExpr(e parser.Expr) ir.Parameter {
	switch n := e.(type) {
	case *parser.IntLiteral:
		return ir.ConstParam(n.Value, ir.IntType(32))
	case *parser.Ident:
		return fs.fn.ReadVariable(fs.varID(n.Symbol), fs.cur)
	case *parser.Unary:
		return fs.lowerUnary(n)
	case *parser.Binary:
		return fs.lowerBinary(n)
	case *parser.Ternary:
		return fs.lowerTernary(n)
	case *parser.Assign:
		return fs.lowerAssign(n)
	case *parser.PostfixIncDec:
		return fs.lowerPostfixIncDec(n)
	case *parser.Call:
		return fs.lowerCall(n)
	default:
		return ir.UndefParam(nil)
	}
}

var binaryOpcodes = map[string]ir.Opcode{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpSMul, "/": ir.OpSDiv, "%": ir.OpSRem,
	"<<": ir.OpShl, ">>": ir.OpAsr, "|": ir.OpOr, "&": ir.OpAnd, "^": ir.OpXor,
}

var compareCodes = map[string]ir.CC{
	"<": ir.CCLess, ">": ir.CCGreater, "<=": ir.CCLessEq, ">=": ir.CCGreaterEq,
	"==": ir.CCEqual, "!=": ir.CCNotEqual,
}

func (fs *funcState) lowerBinary(n *parser.Binary) ir.Parameter {
	if n.Op == "&&" || n.Op == "||" {
		return fs.lowerShortCircuit(n)
	}
	lhs := fs.lowerExpr(n.Left)
	rhs := fs.lowerExpr(n.Right)
	if cc, ok := compareCodes[n.Op]; ok {
		return ir.VRegParam(fs.cur.EmitCompare(cc, lhs, rhs))
	}
	op := binaryOpcodes[n.Op]
	return ir.VRegParam(fs.cur.EmitBinary(op, lhs.Type, lhs, rhs))
}

// lowerShortCircuit desugars && and || into a branch, since their right
// operand must not be evaluated unless the left doesn't already decide the
// result. Each operand is normalized to 0/1 via a != 0 compare, then
// merged via a synthetic variable write/read pair (the same machinery every
// other variable merge uses, rather than a literal φ instruction).
func (fs *funcState) lowerShortCircuit(n *parser.Binary) ir.Parameter {
	i32 := ir.IntType(32)
	lhs := fs.lowerExpr(n.Left)
	lhsBool := ir.VRegParam(fs.cur.EmitCompare(ir.CCNotEqual, lhs, ir.ConstParam(0, lhs.Type)))

	rhsBlock := fs.fn.NewBlock()
	joinBlock := fs.fn.NewBlock()
	shortCircuitBlock := fs.cur
	shortCircuitValue := ir.ConstParam(0, i32)
	if n.Op == "||" {
		shortCircuitValue = ir.ConstParam(1, i32)
		fs.cur.EmitJumpIf(lhsBool, joinBlock, rhsBlock)
	} else {
		fs.cur.EmitJumpIf(lhsBool, rhsBlock, joinBlock)
	}
	fs.fn.SealBlock(rhsBlock)

	fs.cur = rhsBlock
	rhs := fs.lowerExpr(n.Right)
	rhsBool := ir.VRegParam(fs.cur.EmitCompare(ir.CCNotEqual, rhs, ir.ConstParam(0, rhs.Type)))
	rhsBlock = fs.cur
	if !fs.cur.Terminated {
		fs.cur.EmitJump(joinBlock)
	}

	fs.fn.SealBlock(joinBlock)
	fs.cur = joinBlock

	fresh := fs.syntheticVar()
	fs.fn.WriteVariable(fresh, shortCircuitBlock, shortCircuitValue)
	fs.fn.WriteVariable(fresh, rhsBlock, rhsBool)
	return fs.fn.ReadVariable(fresh, joinBlock)
}

// syntheticVar allocates a fresh VarID scoped to this function's own
// lowering pass — each compile gets its own Lowerer and funcState, so
// concurrent compiles (cmd/cc/main.go runs compileOne per file via an
// errgroup) never share this counter.
func (fs *funcState) syntheticVar() ir.VarID {
	fs.nextSynth++
	return fs.nextSynth
}

func (fs *funcState) lowerUnary(n *parser.Unary) ir.Parameter {
	switch n.Op {
	case "&":
		return fs.lowerAddr(n.Operand)
	case "*":
		addr := fs.lowerExpr(n.Operand)
		return ir.VRegParam(fs.cur.EmitLoad(addr))
	case "-":
		v := fs.lowerExpr(n.Operand)
		return ir.VRegParam(fs.cur.EmitUnary(ir.OpNegate, v.Type, v))
	case "~":
		v := fs.lowerExpr(n.Operand)
		return ir.VRegParam(fs.cur.EmitUnary(ir.OpNot, v.Type, v))
	case "!":
		v := fs.lowerExpr(n.Operand)
		zero := ir.ConstParam(0, v.Type)
		return ir.VRegParam(fs.cur.EmitCompare(ir.CCEqual, v, zero))
	default:
		return ir.UndefParam(nil)
	}
}

// lowerAddr computes the address of an lvalue expression. Identifiers
// lowered this way must have been allocated a stack slot; this front end
// treats every local as SSA-valued instead (§4.5 readVariable/writeVariable),
// so each &x of a plain local emits a fresh alloca, stores x's current SSA
// value into it and returns that slot; later reads of x stay SSA reads and
// do not see stores made through the slot.
func (fs *funcState) lowerAddr(e parser.Expr) ir.Parameter {
	switch n := e.(type) {
	case *parser.Unary:
		if n.Op == "*" {
			return fs.lowerExpr(n.Operand)
		}
	case *parser.Ident:
		slot := fs.cur.EmitAlloca(lowerType(n.Symbol.Type))
		cur := fs.fn.ReadVariable(fs.varID(n.Symbol), fs.cur)
		fs.cur.EmitStore(ir.VRegParam(slot), cur)
		return ir.VRegParam(slot)
	}
	return ir.UndefParam(nil)
}

func (fs *funcState) lowerTernary(n *parser.Ternary) ir.Parameter {
	cond := fs.lowerExpr(n.Cond)
	thenBlock := fs.fn.NewBlock()
	elseBlock := fs.fn.NewBlock()
	joinBlock := fs.fn.NewBlock()

	fs.cur.EmitJumpIf(cond, thenBlock, elseBlock)
	fs.fn.SealBlock(thenBlock)
	fs.fn.SealBlock(elseBlock)

	fs.cur = thenBlock
	thenVal := fs.lowerExpr(n.Then)
	thenBlock = fs.cur
	if !fs.cur.Terminated {
		fs.cur.EmitJump(joinBlock)
	}

	fs.cur = elseBlock
	elseVal := fs.lowerExpr(n.Else)
	elseBlock = fs.cur
	if !fs.cur.Terminated {
		fs.cur.EmitJump(joinBlock)
	}

	fs.fn.SealBlock(joinBlock)
	fs.cur = joinBlock

	fresh := fs.syntheticVar()
	fs.fn.WriteVariable(fresh, thenBlock, thenVal)
	fs.fn.WriteVariable(fresh, elseBlock, elseVal)
	return fs.fn.ReadVariable(fresh, joinBlock)
}

func (fs *funcState) lowerAssign(n *parser.Assign) ir.Parameter {
	var value ir.Parameter
	if n.Op == "=" {
		value = fs.lowerExpr(n.Value)
	} else {
		cur := fs.lowerExpr(n.Target)
		rhs := fs.lowerExpr(n.Value)
		op := binaryOpcodes[n.Op[:len(n.Op)-1]]
		value = ir.VRegParam(fs.cur.EmitBinary(op, cur.Type, cur, rhs))
	}
	fs.storeTo(n.Target, value)
	return value
}

func (fs *funcState) storeTo(target parser.Expr, value ir.Parameter) {
	switch n := target.(type) {
	case *parser.Ident:
		fs.fn.WriteVariable(fs.varID(n.Symbol), fs.cur, value)
	case *parser.Unary:
		if n.Op == "*" {
			addr := fs.lowerExpr(n.Operand)
			fs.cur.EmitStore(addr, value)
		}
	}
}

func (fs *funcState) lowerPostfixIncDec(n *parser.PostfixIncDec) ir.Parameter {
	old := fs.lowerExpr(n.Operand)
	op := ir.OpAdd
	if n.Op == "--" {
		op = ir.OpSub
	}
	one := ir.ConstParam(1, old.Type)
	newVal := ir.VRegParam(fs.cur.EmitBinary(op, old.Type, old, one))
	fs.storeTo(n.Operand, newVal)
	return old
}

func (fs *funcState) lowerCall(n *parser.Call) ir.Parameter {
	var target ir.Parameter
	resolved := false
	if ident, ok := n.Callee.(*parser.Ident); ok {
		if callee, ok := fs.l.funcsByName[ident.Name]; ok {
			target = ir.TopLevelParam(callee)
			resolved = true
		}
	}
	if !resolved {
		target = fs.lowerExpr(n.Callee)
	}
	args := make([]ir.Parameter, len(n.Args))
	for i, a := range n.Args {
		args[i] = fs.lowerExpr(a)
	}
	ret := lowerType(calleeReturnType(n))
	return ir.VRegParam(fs.cur.EmitCall(target, args, ret))
}

func calleeReturnType(n *parser.Call) *parser.Type {
	if t := n.ExprType(); t != nil {
		return t
	}
	return nil
}
