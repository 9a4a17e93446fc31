package ir

// VarID identifies a source-level local variable for the purposes of the SSA
// builder's readVariable/writeVariable tables. Lowering assigns one VarID per
// declared symbol; the IR package itself never looks inside it.
type VarID int

// VirtualRegister is the named result of exactly one instruction or φ.
type VirtualRegister struct {
	ID     int
	Type   *Type
	IsPhi  bool
	Phi    *Phi // set when IsPhi
	Owner  *Function
}

// Instruction is one IR operation. Result is nil for void instructions
// (store, jump, jump-if, return-void).
type Instruction struct {
	Opcode Opcode
	Result *VirtualRegister
	Args   []Parameter
	CC     CC    // valid when Opcode == OpCompare
	Type   *Type // valid for cast/sizeof; alloca carries its type as a ParamType arg
}

// PhiOperand is one incoming (predecessor, value) pair of a φ.
type PhiOperand struct {
	Pred   *BasicBlock
	Value  Parameter
	Ignore bool // set when Pred was pruned by tryRemoveTrivialBlocks
}

// Phi is a basic block's SSA merge point for one source variable, built
// on-the-fly per Braun et al.'s algorithm (§4.5).
type Phi struct {
	Result     *VirtualRegister
	Var        VarID
	Block      *BasicBlock
	Operands   []PhiOperand
	Incomplete bool
	Used       bool

	// tryRemoveProcessing breaks reentrant cycles while walking the
	// trivial-φ elimination's recursive "recheck every φ that used me" step.
	tryRemoveProcessing bool
}

// BasicBlock is a straight-line instruction sequence with a single entry and
// (at most) one terminator.
type BasicBlock struct {
	ID           int
	Function     *Function
	Instructions []*Instruction
	Phis         []*Phi
	Sealed       bool
	Predecessors []*BasicBlock
	Terminated   bool
}

func (b *BasicBlock) addInstruction(inst *Instruction) {
	if b.Terminated {
		// §4.5: instructions after an unconditional terminator in the same
		// block are suppressed.
		return
	}
	b.Instructions = append(b.Instructions, inst)
	if inst.Opcode.IsTerminator() {
		b.Terminated = true
	}
}

// Function is one lowered C function: parameters, a return type, and the
// basic blocks composing its body.
type Function struct {
	Name       string
	ID         int
	ParamTypes []*Type
	ReturnType *Type

	Blocks        []*BasicBlock
	nextBlockID   int
	nextVRegID    int
	variableTable map[varBlockKey]Parameter
}

type varBlockKey struct {
	Var   VarID
	Block *BasicBlock
}

// Module collects every function a translation unit lowers to, the IR
// analogue of parser.TranslationUnit.
type Module struct {
	Functions []*Function
}

// NewFunction creates an empty function; the caller still owns creating and
// appending the entry block.
func NewFunction(id int, name string, paramTypes []*Type, ret *Type) *Function {
	return &Function{
		Name: name, ID: id, ParamTypes: paramTypes, ReturnType: ret,
		variableTable: make(map[varBlockKey]Parameter),
	}
}

// NewBlock creates and appends a new, unsealed basic block with no known
// predecessors yet.
func (fn *Function) NewBlock() *BasicBlock {
	b := &BasicBlock{ID: fn.nextBlockID, Function: fn}
	fn.nextBlockID++
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// NewVReg allocates a fresh virtual register of type t for the current
// function, used by every value-producing instruction and φ.
func (fn *Function) NewVReg(t *Type) *VirtualRegister {
	r := &VirtualRegister{ID: fn.nextVRegID, Type: t, Owner: fn}
	fn.nextVRegID++
	return r
}

// AddPredecessor records that from ends with an edge into to, the structural
// fact readVariable/sealBlock reason about.
func (to *BasicBlock) AddPredecessor(from *BasicBlock) {
	to.Predecessors = append(to.Predecessors, from)
}

// Emit appends inst to b (subject to the after-terminator suppression rule)
// and returns inst's result register, or nil for void instructions.
func (b *BasicBlock) Emit(inst *Instruction) *VirtualRegister {
	b.addInstruction(inst)
	return inst.Result
}
