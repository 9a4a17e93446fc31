package ir

import (
	"fmt"
	"strings"

	"github.com/kr/text"
)

// Print renders m as the textual IR dump format from §6: per function
// `function NAME $ID TYPE { ... }`, per block `@ID(@pred, ...):` followed by
// φ's and then instructions, indented under a gutter.
func Print(m *Module) string {
	var sb strings.Builder
	for _, fn := range m.Functions {
		sb.WriteString(printFunction(fn))
		sb.WriteString("\n")
	}
	return sb.String()
}

func printFunction(fn *Function) string {
	var sig strings.Builder
	fmt.Fprintf(&sig, "function %s $%d %s(", fn.Name, fn.ID, fn.ReturnType)
	for i, t := range fn.ParamTypes {
		if i > 0 {
			sig.WriteString(", ")
		}
		sig.WriteString(t.String())
	}
	sig.WriteString(") {\n")

	var body strings.Builder
	for _, b := range fn.Blocks {
		body.WriteString(printBlock(b))
	}

	return sig.String() + text.Indent(body.String(), "  ") + "}\n"
}

func printBlock(b *BasicBlock) string {
	var sb strings.Builder
	preds := make([]string, len(b.Predecessors))
	for i, p := range b.Predecessors {
		preds[i] = fmt.Sprintf("@%d", p.ID)
	}
	fmt.Fprintf(&sb, "@%d(%s):\n", b.ID, strings.Join(preds, ", "))

	var lines strings.Builder
	for _, phi := range b.Phis {
		if !phi.Used {
			continue
		}
		lines.WriteString(printPhi(phi))
	}
	for _, inst := range b.Instructions {
		lines.WriteString(printInstruction(inst))
	}
	sb.WriteString(text.Indent(lines.String(), "  "))
	return sb.String()
}

func printPhi(phi *Phi) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = phi", printVReg(phi.Result))
	for _, op := range phi.Operands {
		if op.Ignore {
			continue
		}
		fmt.Fprintf(&sb, " [@%d %s]", op.Pred.ID, printParam(op.Value))
	}
	sb.WriteString("\n")
	return sb.String()
}

func printInstruction(inst *Instruction) string {
	var args []string
	for _, a := range inst.Args {
		args = append(args, printParam(a))
	}
	if inst.Opcode == OpCompare {
		args = append([]string{inst.CC.String()}, args...)
	}
	if inst.Type != nil && (inst.Opcode == OpAlloca || inst.Opcode == OpCast || inst.Opcode == OpSizeof) {
		args = append([]string{inst.Type.String()}, args...)
	}
	rhs := fmt.Sprintf("%s %s", inst.Opcode, strings.Join(args, ", "))
	if inst.Result != nil {
		return fmt.Sprintf("%s = %s\n", printVReg(inst.Result), rhs)
	}
	return rhs + "\n"
}

func printVReg(r *VirtualRegister) string { return fmt.Sprintf("%%%d", r.ID) }

func printParam(p Parameter) string {
	switch p.Kind {
	case ParamVReg:
		return printVReg(p.VReg)
	case ParamBlock:
		return fmt.Sprintf("@%d", p.Block.ID)
	case ParamTopLevel:
		return fmt.Sprintf("$%d", p.TopLevel.ID)
	case ParamConstant:
		if p.ConstUndefined {
			return "undef"
		}
		return fmt.Sprintf("%d", p.ConstValue)
	case ParamType:
		return p.Type.String()
	default:
		return "?"
	}
}
