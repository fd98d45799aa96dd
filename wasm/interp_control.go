package wasm

import "fmt"

func init() {
	register(OptCodeUnreachable, unreachable)
	register(OptCodeNop, nop)
	register(OptCodeBlock, block)
	register(OptCodeLoop, loop)
	register(OptCodeIf, ifOp)
	register(OptCodeElse, elseOp)
	register(OptCodeEnd, end)
	register(OptCodeBr, br)
	register(OptCodeBrIf, brIf)
	register(OptCodeBrTable, brTable)
	register(OptCodeReturn, returnOp)
	register(OptCodeCall, call)
	register(OptCodeCallIndirect, callIndirect)
}

func unreachable(it *Interpreter) error {
	return ErrUnreachable
}

func nop(it *Interpreter) error {
	it.frame.PC++
	return nil
}

func (it *Interpreter) blockAt(pc uint64) (*FunctionBlock, error) {
	b, ok := it.frame.Func.Blocks[pc]
	if !ok {
		return nil, fmt.Errorf("no block metadata at 0x%x", pc)
	}
	return b, nil
}

func block(it *Interpreter) error {
	frame := it.frame
	b, err := it.blockAt(frame.PC)
	if err != nil {
		return err
	}
	arity := len(b.BlockType.ReturnTypes)
	it.Stack.PushLabel(&Label{
		Arity:          arity,
		ResultArity:    arity,
		ContinuationPC: b.EndAt,
	})
	frame.PC += 1 + b.BlockTypeBytes
	return nil
}

func loop(it *Interpreter) error {
	frame := it.frame
	b, err := it.blockAt(frame.PC)
	if err != nil {
		return err
	}
	bodyStart := frame.PC + 1 + b.BlockTypeBytes
	// A branch to a loop label re-enters the body; the label survives the
	// branch, so its arity is the loop's parameter count.
	it.Stack.PushLabel(&Label{
		Arity:          len(b.BlockType.InputTypes),
		ResultArity:    len(b.BlockType.ReturnTypes),
		ContinuationPC: bodyStart,
		IsLoop:         true,
	})
	frame.PC = bodyStart
	return nil
}

func ifOp(it *Interpreter) error {
	frame := it.frame
	b, err := it.blockAt(frame.PC)
	if err != nil {
		return err
	}
	cond, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	arity := len(b.BlockType.ReturnTypes)
	it.Stack.PushLabel(&Label{
		Arity:          arity,
		ResultArity:    arity,
		ContinuationPC: b.EndAt,
	})
	switch {
	case cond.I32() != 0:
		frame.PC += 1 + b.BlockTypeBytes
	case b.ElseAt != 0:
		frame.PC = b.ElseAt + 1
	default:
		// No else arm: fall to the end, which discards the label.
		frame.PC = b.EndAt
	}
	return nil
}

// elseOp runs only when the then arm falls through; it skips to the
// construct's end.
func elseOp(it *Interpreter) error {
	b, err := it.blockAt(it.frame.PC)
	if err != nil {
		return err
	}
	it.frame.PC = b.EndAt
	return nil
}

func end(it *Interpreter) error {
	if _, err := it.Stack.ExitLabel(); err != nil {
		return err
	}
	frame := it.frame
	if it.Stack.LabelCount() == frame.labelBase {
		// The function-body label was just discarded: the activation is over.
		return it.leaveFunction()
	}
	frame.PC++
	return nil
}

func br(it *Interpreter) error {
	it.frame.PC++
	depth, err := it.fetchUint32()
	if err != nil {
		return err
	}
	return it.branch(depth)
}

func brIf(it *Interpreter) error {
	it.frame.PC++
	depth, err := it.fetchUint32()
	if err != nil {
		return err
	}
	cond, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	if cond.I32() != 0 {
		return it.branch(depth)
	}
	return nil
}

func brTable(it *Interpreter) error {
	it.frame.PC++
	n, err := it.fetchUint32()
	if err != nil {
		return err
	}
	targets := make([]uint32, n)
	for i := range targets {
		if targets[i], err = it.fetchUint32(); err != nil {
			return err
		}
	}
	defaultTarget, err := it.fetchUint32()
	if err != nil {
		return err
	}
	idx, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	if i := idx.I32(); uint64(i) < uint64(len(targets)) {
		return it.branch(targets[i])
	}
	return it.branch(defaultTarget)
}

// branch unwinds depth+1 levels of nesting, preserving the target label's
// arity-many values, then transfers to its continuation.
func (it *Interpreter) branch(depth uint32) error {
	l, err := it.Stack.UnwindToLabel(depth)
	if err != nil {
		return err
	}
	it.frame.PC = l.ContinuationPC
	return nil
}

func returnOp(it *Interpreter) error {
	return it.leaveFunction()
}

func call(it *Interpreter) error {
	frame := it.frame
	frame.PC++
	index, err := it.fetchUint32()
	if err != nil {
		return err
	}
	if uint64(index) >= uint64(len(frame.Module.FunctionAddrs)) {
		return fmt.Errorf("call: function index %d out of range", index)
	}
	return it.invokeFunction(it.Store.Functions[frame.Module.FunctionAddrs[index]])
}

func callIndirect(it *Interpreter) error {
	frame := it.frame
	frame.PC++
	typeIndex, err := it.fetchUint32()
	if err != nil {
		return err
	}
	frame.PC++ // reserved table index byte
	if uint64(typeIndex) >= uint64(len(frame.Module.Types)) {
		return fmt.Errorf("call_indirect: type index %d out of range", typeIndex)
	}
	expType := frame.Module.Types[typeIndex]

	if len(frame.Module.TableAddrs) == 0 {
		return ErrUndefinedElement
	}
	table := it.Store.Tables[frame.Module.TableAddrs[0]]
	idx, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	addr, err := table.GetElement(idx.I32())
	if err != nil {
		return err
	}
	f := it.Store.Functions[addr]
	if !hasSameSignature(f.Signature.InputTypes, expType.InputTypes) ||
		!hasSameSignature(f.Signature.ReturnTypes, expType.ReturnTypes) {
		return fmt.Errorf("%w: %s != %s", ErrIndirectCallTypeMismatch, f.Signature, expType)
	}
	return it.invokeFunction(f)
}
