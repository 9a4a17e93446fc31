package parser

import "mcc/internal/source"

// Type is the recursive tagged variant over §3's Variable type grammar:
// int, pointer-to(T), or function(return, params). Every derived type wraps
// a base, so "pointer to function(int) returning pointer to int" is built
// bottom-up the same way the declarator replay in parser.go constructs it.
type Type struct {
	Kind TypeKind

	// Pointee is set when Kind == TypePointer.
	Pointee *Type

	// Return/Params are set when Kind == TypeFunction.
	Return *Type
	Params []*Type
}

type TypeKind int

const (
	TypeInt TypeKind = iota
	TypePointer
	TypeFunction
	TypeVoid
)

func IntType() *Type  { return &Type{Kind: TypeInt} }
func VoidType() *Type { return &Type{Kind: TypeVoid} }
func PointerTo(t *Type) *Type {
	return &Type{Kind: TypePointer, Pointee: t}
}
func FuncType(ret *Type, params []*Type) *Type {
	return &Type{Kind: TypeFunction, Return: ret, Params: params}
}

// Equal reports structural type equality, used by the analyzer's assignment
// and ternary type checks.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypePointer:
		return t.Pointee.Equal(o.Pointee)
	case TypeFunction:
		if !t.Return.Equal(o.Return) || len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t *Type) IsPointer() bool  { return t != nil && t.Kind == TypePointer }
func (t *Type) IsFunction() bool { return t != nil && t.Kind == TypeFunction }
func (t *Type) IsArithmetic() bool {
	return t != nil && t.Kind == TypeInt
}

func (t *Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeVoid:
		return "void"
	case TypePointer:
		return t.Pointee.String() + "*"
	case TypeFunction:
		s := t.Return.String() + "("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return s + ")"
	default:
		return "?"
	}
}

// Symbol is a local or global binding, looked up by name within the
// lexically scoped symbol table, per §3.
type Symbol struct {
	Name       string
	Type       *Type
	ScopeDepth int
	// StackOffset is assigned by a later codegen stage; the front end only
	// reserves the field so lowering has somewhere to put it.
	StackOffset int
}

// Node is implemented by every AST expression and statement so the lowerer
// and printer can type-switch uniformly, per §9's "sum type + pattern
// matching" redesign of the original's struct+enum+union idiom.
type Node interface {
	Loc() *source.Location
}

// Expr is any expression node. Every expression carries a resolved Type and
// IsLvalue flag once semantic analysis completes, per §3's invariant.
type Expr interface {
	Node
	ExprType() *Type
	SetExprType(*Type)
	Lvalue() bool
	SetLvalue(bool)
}

type exprBase struct {
	loc      *source.Location
	typ      *Type
	isLvalue bool
}

func (e *exprBase) Loc() *source.Location  { return e.loc }
func (e *exprBase) ExprType() *Type        { return e.typ }
func (e *exprBase) SetExprType(t *Type)    { e.typ = t }
func (e *exprBase) Lvalue() bool           { return e.isLvalue }
func (e *exprBase) SetLvalue(v bool)       { e.isLvalue = v }

// IntLiteral is a constant-integer primary expression.
type IntLiteral struct {
	exprBase
	Value int64
}

// Ident is an identifier primary expression, resolved to a Symbol by the
// parser at parse time (per §4.3: "unresolved is an error").
type Ident struct {
	exprBase
	Name   string
	Symbol *Symbol
}

// Unary covers -e, ~e, !e, *e, &e, ++e, --e. Elide marks a &*x or *&x pair
// fused by the semantic analyzer per §4.4.
type Unary struct {
	exprBase
	Op      string
	Operand Expr
	Elide   bool
}

// Binary covers every binary arithmetic, relational, and bitwise operator.
type Binary struct {
	exprBase
	Op          string
	Left, Right Expr
}

// Ternary is the conditional operator a ? b : c.
type Ternary struct {
	exprBase
	Cond, Then, Else Expr
}

// Assign covers '=' and the compound assignment operators (+=, -=, etc.).
// Pre-increment is desugared to this form at parse time per §4.3.
type Assign struct {
	exprBase
	Op           string // "=" or e.g. "+="
	Target, Value Expr
}

// PostfixIncDec is the dedicated e++/e-- node (distinct from Assign because
// its value is the pre-mutation operand, per §4.3).
type PostfixIncDec struct {
	exprBase
	Op      string // "++" or "--"
	Operand Expr
}

// Call is a function call expression.
type Call struct {
	exprBase
	Callee Expr
	Args   []Expr
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ loc *source.Location }

func (s *stmtBase) Loc() *source.Location { return s.loc }
func (s *stmtBase) stmtNode()             {}

// ExprStmt wraps a bare expression statement.
type ExprStmt struct {
	stmtBase
	X Expr
}

// NullStmt is a bare ';'.
type NullStmt struct{ stmtBase }

// If is the selection statement; Else is nil for a bodyless else.
type If struct {
	stmtBase
	Cond       Expr
	Then, Else Stmt
}

// LoopKind distinguishes the four iteration-statement forms.
type LoopKind int

const (
	LoopWhile LoopKind = iota
	LoopDoWhile
	LoopForExpr
	LoopForDecl
)

// Loop covers while, do-while, for(expr;;), and for(decl;;).
type Loop struct {
	stmtBase
	Kind       LoopKind
	Init       Stmt // for-decl's declaration, or nil
	InitExpr   Expr // for-expr's init, or nil
	Cond       Expr
	Post       Expr
	Body       Stmt
}

// Compound is a brace-delimited statement list. PopCount is the number of
// local symbols this scope introduced, recorded so codegen can adjust the
// stack on exit, per §4.3.
type Compound struct {
	stmtBase
	Stmts    []Stmt
	PopCount int
}

// JumpKind distinguishes return/break/continue.
type JumpKind int

const (
	JumpReturn JumpKind = iota
	JumpBreak
	JumpContinue
)

// Jump is return/break/continue. Value is set only for JumpReturn.
type Jump struct {
	stmtBase
	Kind  JumpKind
	Value Expr
}

// Declarator names one declared entity and its derived type, built by the
// token-stack replay in parser.go per §4.3.
type Declarator struct {
	Name string
	Type *Type
	// ParamNames holds parameter names when Type is a function type,
	// aligned positionally with Type.Params.
	ParamNames []string
	// ParamSymbols holds the Symbol each parameter was declared as, in the
	// function-parameter scope pushed during parsing — needed by lowering to
	// key the SSA builder's variable table, since that scope is popped (and
	// its map discarded) once the declarator finishes parsing.
	ParamSymbols []*Symbol
}

// InitDeclarator pairs a Declarator with its initializer (Init) or function
// body (Body) — exactly one is set, or neither for a bare declaration.
type InitDeclarator struct {
	Declarator *Declarator
	Init       Expr
	Body       *Compound
	Symbol     *Symbol
}

// Declaration is zero or more init-declarators sharing one base type.
type Declaration struct {
	stmtBase
	BaseType *Type
	Inits    []*InitDeclarator
}

// Function is a completed function definition: a Declaration whose one
// init-declarator carried a body.
type Function struct {
	Name         string
	Type         *Type
	ParamNames   []string
	ParamSymbols []*Symbol
	Body         *Compound
	Loc          *source.Location
}

// TranslationUnit is the parse root: top-level declarations and function
// definitions in source order.
type TranslationUnit struct {
	Functions    []*Function
	Declarations []*Declaration
}
