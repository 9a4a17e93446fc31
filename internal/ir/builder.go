package ir

import "mcc/internal/errors"

// WriteVariable records that var's current value in block is value — local
// value numbering, per §4.5.
func (fn *Function) WriteVariable(v VarID, block *BasicBlock, value Parameter) {
	fn.variableTable[varBlockKey{v, block}] = value
}

// ReadVariable resolves var's current definition as of block, per the
// readVariable(var, block) algorithm in §4.5.
func (fn *Function) ReadVariable(v VarID, block *BasicBlock) Parameter {
	if val, ok := fn.variableTable[varBlockKey{v, block}]; ok {
		return val
	}
	return fn.readVariableRecursive(v, block)
}

func (fn *Function) readVariableRecursive(v VarID, block *BasicBlock) Parameter {
	var val Parameter
	switch {
	case !block.Sealed:
		// Incomplete CFG: park an incomplete φ to be filled in once block is
		// sealed.
		phi := fn.newPhi(block, v)
		phi.Incomplete = true
		val = VRegParam(phi.Result)
	case len(block.Predecessors) == 1:
		// No merge needed with exactly one predecessor.
		val = fn.ReadVariable(v, block.Predecessors[0])
	default:
		// Break potential cycles (back-edges) with an operandless φ, cached
		// before its operands are filled.
		phi := fn.newPhi(block, v)
		val = VRegParam(phi.Result)
		fn.WriteVariable(v, block, val)
		val = fn.addPhiOperands(v, phi)
	}
	fn.WriteVariable(v, block, val)
	return val
}

func (fn *Function) newPhi(block *BasicBlock, v VarID) *Phi {
	phi := &Phi{Var: v, Block: block, Used: true}
	phi.Result = fn.NewVReg(nil)
	phi.Result.IsPhi = true
	phi.Result.Phi = phi
	block.Phis = append(block.Phis, phi)
	return phi
}

// addPhiOperands fills phi's operand list from every predecessor of its
// block, then tries to collapse it if it turns out to be trivial.
func (fn *Function) addPhiOperands(v VarID, phi *Phi) Parameter {
	for _, pred := range phi.Block.Predecessors {
		val := fn.ReadVariable(v, pred)
		phi.Operands = append(phi.Operands, PhiOperand{Pred: pred, Value: val})
	}
	phi.Result.Type = inferPhiType(phi)
	return fn.tryRemoveTrivialPhi(phi)
}

func inferPhiType(phi *Phi) *Type {
	for _, op := range phi.Operands {
		if op.Value.Type != nil {
			return op.Value.Type
		}
	}
	return nil
}

// tryRemoveTrivialPhi implements the algorithm in §4.5: a φ referencing only
// itself and at most one other distinct value is trivial and gets replaced
// by that value everywhere it's used; the replacement retriggers triviality
// checks on every φ that had used it.
func (fn *Function) tryRemoveTrivialPhi(phi *Phi) Parameter {
	if !phi.Used || phi.tryRemoveProcessing {
		return VRegParam(phi.Result)
	}
	phi.tryRemoveProcessing = true

	var same *Parameter
	for i := range phi.Operands {
		op := &phi.Operands[i]
		if op.Ignore {
			continue
		}
		selfRef := op.Value.Kind == ParamVReg && op.Value.VReg == phi.Result
		if selfRef || (same != nil && op.Value.Equal(*same)) {
			continue
		}
		if same != nil {
			// Merges at least two distinct values: not trivial.
			phi.tryRemoveProcessing = false
			return VRegParam(phi.Result)
		}
		v := op.Value
		same = &v
	}

	var replacement Parameter
	if same == nil {
		replacement = UndefParam(phi.Result.Type)
	} else {
		replacement = *same
	}
	fn.replaceVReg(phi.Result, replacement)
	phi.Used = false
	phi.tryRemoveProcessing = false
	return replacement
}

// replaceVReg rewrites every use of old (in the variable table, in every
// φ's operand list, and in every instruction's argument list) to value,
// then rechecks the triviality of any φ whose operand just changed. This is
// a whole-function scan rather than the original's per-register use-list
// walk: §5 keeps the builder a pure in-memory pass with no external users to
// track incrementally, so a full scan is the equivalent, simpler Go idiom.
func (fn *Function) replaceVReg(old *VirtualRegister, value Parameter) {
	for k, v := range fn.variableTable {
		if v.Kind == ParamVReg && v.VReg == old {
			fn.variableTable[k] = value
		}
	}
	var rechecked []*Phi
	for _, b := range fn.Blocks {
		for _, phi := range b.Phis {
			if phi == old.Phi {
				continue
			}
			touched := false
			for i := range phi.Operands {
				op := &phi.Operands[i]
				if op.Value.Kind == ParamVReg && op.Value.VReg == old {
					op.Value = value
					touched = true
				}
			}
			if touched && phi.Used {
				rechecked = append(rechecked, phi)
			}
		}
		for _, inst := range b.Instructions {
			for i := range inst.Args {
				if inst.Args[i].Kind == ParamVReg && inst.Args[i].VReg == old {
					inst.Args[i] = value
				}
			}
		}
	}
	for _, phi := range rechecked {
		fn.tryRemoveTrivialPhi(phi)
	}
}

// SealBlock marks block as having its complete predecessor set known: every
// incomplete φ it parked gets its operands filled in now.
func (fn *Function) SealBlock(block *BasicBlock) {
	if block.Sealed {
		return
	}
	for _, phi := range block.Phis {
		if phi.Incomplete && phi.Used {
			phi.Incomplete = false
			fn.addPhiOperands(phi.Var, phi)
		}
	}
	block.Sealed = true
}

// TryRemoveTrivialBlocks implements the post-lowering block cleanup from
// §4.5: blocks that no instruction anywhere references directly as a jump
// target (their only remaining references are as φ operands or predecessor
// edges) are pruned, except the entry block. Pruning a block detaches it as
// a predecessor everywhere and flags the corresponding φ operands ignored,
// rechecking their triviality.
func (fn *Function) TryRemoveTrivialBlocks() {
	referenced := fn.blocksReferencedByInstructions()
	kept := fn.Blocks[:0:0]
	for i, b := range fn.Blocks {
		if i == 0 || referenced[b] {
			kept = append(kept, b)
			continue
		}
		fn.pruneBlock(b)
	}
	fn.Blocks = kept
}

func (fn *Function) blocksReferencedByInstructions() map[*BasicBlock]bool {
	referenced := make(map[*BasicBlock]bool)
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			for _, a := range inst.Args {
				if a.Kind == ParamBlock {
					referenced[a.Block] = true
				}
			}
		}
	}
	return referenced
}

func (fn *Function) pruneBlock(b *BasicBlock) {
	for _, other := range fn.Blocks {
		if other == b {
			continue
		}
		kept := other.Predecessors[:0:0]
		for _, p := range other.Predecessors {
			if p != b {
				kept = append(kept, p)
			}
		}
		other.Predecessors = kept
		for _, phi := range other.Phis {
			for i := range phi.Operands {
				if phi.Operands[i].Pred == b {
					phi.Operands[i].Ignore = true
				}
			}
			if phi.Used {
				fn.tryRemoveTrivialPhi(phi)
			}
		}
	}
}

// --- emit helpers: one per §4.5 opcode family ---

func (b *BasicBlock) emitValue(op Opcode, t *Type, args ...Parameter) *VirtualRegister {
	inst := &Instruction{Opcode: op, Args: args}
	if t != nil {
		inst.Result = b.Function.NewVReg(t)
	}
	b.Emit(inst)
	return inst.Result
}

func (b *BasicBlock) EmitParameter(index int, t *Type) *VirtualRegister {
	return b.emitValue(OpParameter, t, ConstParam(int64(index), IntType(64)))
}

func (b *BasicBlock) EmitBinary(op Opcode, t *Type, lhs, rhs Parameter) *VirtualRegister {
	return b.emitValue(op, resultType(op, t), lhs, rhs)
}

// resultType derives an instruction's result type per §4.5's type
// propagation rules, where it's determinable from the opcode alone (compare
// always yields i8; everything else here takes its operand type t).
func resultType(op Opcode, t *Type) *Type {
	if op == OpCompare {
		return IntType(8)
	}
	return t
}

func (b *BasicBlock) EmitCompare(cc CC, lhs, rhs Parameter) *VirtualRegister {
	inst := &Instruction{Opcode: OpCompare, CC: cc, Args: []Parameter{lhs, rhs}}
	inst.Result = b.Function.NewVReg(IntType(8))
	b.Emit(inst)
	return inst.Result
}

func (b *BasicBlock) EmitUnary(op Opcode, t *Type, operand Parameter) *VirtualRegister {
	return b.emitValue(op, t, operand)
}

func (b *BasicBlock) EmitJump(target *BasicBlock) {
	b.Emit(&Instruction{Opcode: OpJump, Args: []Parameter{BlockParam(target)}})
	target.AddPredecessor(b)
}

func (b *BasicBlock) EmitJumpIf(cond Parameter, thenBlock, elseBlock *BasicBlock) {
	b.Emit(&Instruction{Opcode: OpJumpIf, Args: []Parameter{cond, BlockParam(thenBlock), BlockParam(elseBlock)}})
	thenBlock.AddPredecessor(b)
	elseBlock.AddPredecessor(b)
}

func (b *BasicBlock) EmitReturn(value *Parameter) {
	var args []Parameter
	if value != nil {
		args = []Parameter{*value}
	}
	b.Emit(&Instruction{Opcode: OpReturn, Args: args})
}

func (b *BasicBlock) EmitAlloca(elem *Type) *VirtualRegister {
	return b.emitValue(OpAlloca, PointerType(elem), TypeParam(elem))
}

func (b *BasicBlock) EmitLoad(addr Parameter) *VirtualRegister {
	var elem *Type
	if addr.Type != nil && addr.Type.Kind == TypePointer {
		elem = addr.Type.Pointee
	}
	return b.emitValue(OpLoad, elem, addr)
}

func (b *BasicBlock) EmitStore(addr, value Parameter) {
	b.Emit(&Instruction{Opcode: OpStore, Args: []Parameter{addr, value}})
}

// EmitGetElementPointer computes base + offset. Per the resolved Open
// Question (c) in §9, the result type is only correct for simple
// pointer-to-T arithmetic: it is always base's own type.
func (b *BasicBlock) EmitGetElementPointer(base, offset Parameter) *VirtualRegister {
	return b.emitValue(OpGetElementPointer, base.Type, base, offset)
}

func (b *BasicBlock) EmitCast(to *Type, value Parameter) *VirtualRegister {
	inst := &Instruction{Opcode: OpCast, Type: to, Args: []Parameter{value}}
	inst.Result = b.Function.NewVReg(to)
	b.Emit(inst)
	return inst.Result
}

func (b *BasicBlock) EmitCall(target Parameter, args []Parameter, ret *Type) *VirtualRegister {
	all := append([]Parameter{target}, args...)
	return b.emitValue(OpCall, ret, all...)
}

func (b *BasicBlock) EmitSizeof(t *Type) *VirtualRegister {
	inst := &Instruction{Opcode: OpSizeof, Type: t}
	inst.Result = b.Function.NewVReg(IntType(64))
	b.Emit(inst)
	return inst.Result
}

// AssertWellFormed is a programmer-error guard (§7): every block but the
// entry must have at least one predecessor by the time the function is
// fully lowered.
func (fn *Function) AssertWellFormed() {
	for i, b := range fn.Blocks {
		if i == 0 {
			continue
		}
		errors.Assert(len(b.Predecessors) > 0 || !b.Sealed, "block @%d has no predecessors", b.ID)
	}
}
