package wasm

import (
	"fmt"

	"github.com/sunhaibo2004/SSVM/wasm/leb128"
)

var blockTypeEmpty = &FunctionType{}

var blockTypeSingle = map[int64]*FunctionType{
	-1: {ReturnTypes: []ValueType{ValueTypeI32}},
	-2: {ReturnTypes: []ValueType{ValueTypeI64}},
	-3: {ReturnTypes: []ValueType{ValueTypeF32}},
	-4: {ReturnTypes: []ValueType{ValueTypeF64}},
}

func readBlockType(module *Module, data []byte) (*FunctionType, uint64, error) {
	raw, num, err := leb128.DecodeInt33AsInt64(data)
	if err != nil {
		return nil, 0, fmt.Errorf("read block type: %w", err)
	}
	switch {
	case raw == -64: // 0x40, the empty block type
		return blockTypeEmpty, num, nil
	case raw < 0:
		bt, ok := blockTypeSingle[raw]
		if !ok {
			return nil, 0, fmt.Errorf("invalid block type %d", raw)
		}
		return bt, num, nil
	default:
		if raw >= int64(len(module.TypeSection)) {
			return nil, 0, fmt.Errorf("block type index %d out of range", raw)
		}
		return module.TypeSection[raw], num, nil
	}
}

// analyzeBlocks scans a function body once and records, for every
// block/loop/if construct, where it begins, where its else arm begins, and
// where it ends. Entries are keyed by the opening opcode's position; if
// constructs with an else arm are additionally keyed by the else position so
// the else handler can jump to the end. The body is already validated, so
// the scan only needs to walk immediates, not check them.
func analyzeBlocks(module *Module, body []byte) (map[uint64]*FunctionBlock, error) {
	blocks := map[uint64]*FunctionBlock{}
	var stack []*FunctionBlock
	for pc := uint64(0); pc < uint64(len(body)); pc++ {
		op := OptCode(body[pc])
		switch op {
		case OptCodeBlock, OptCodeLoop, OptCodeIf:
			bt, num, err := readBlockType(module, body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			stack = append(stack, &FunctionBlock{
				StartAt:        pc,
				BlockType:      bt,
				BlockTypeBytes: num,
				IsLoop:         op == OptCodeLoop,
				IsIf:           op == OptCodeIf,
			})
			pc += num
		case OptCodeElse:
			if len(stack) == 0 || !stack[len(stack)-1].IsIf {
				return nil, fmt.Errorf("at 0x%x: else outside if", pc)
			}
			stack[len(stack)-1].ElseAt = pc
		case OptCodeEnd:
			if len(stack) == 0 {
				// The end closing the function body itself.
				continue
			}
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b.EndAt = pc
			blocks[b.StartAt] = b
			if b.ElseAt != 0 {
				blocks[b.ElseAt] = b
			}
		case OptCodeBr, OptCodeBrIf, OptCodeCall,
			OptCodeLocalGet, OptCodeLocalSet, OptCodeLocalTee,
			OptCodeGlobalGet, OptCodeGlobalSet:
			_, num, err := leb128.DecodeUint32(body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			pc += num
		case OptCodeBrTable:
			n, num, err := leb128.DecodeUint32(body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			pc += num
			for i := uint32(0); i < n+1; i++ {
				_, num, err := leb128.DecodeUint32(body[pc+1:])
				if err != nil {
					return nil, fmt.Errorf("at 0x%x: %w", pc, err)
				}
				pc += num
			}
		case OptCodeCallIndirect:
			_, num, err := leb128.DecodeUint32(body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			pc += num + 1 // table index byte
		case OptCodeMemorySize, OptCodeMemoryGrow:
			pc++ // reserved memory index byte
		case OptCodeI32Const:
			_, num, err := leb128.DecodeInt32(body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			pc += num
		case OptCodeI64Const:
			_, num, err := leb128.DecodeInt64(body[pc+1:])
			if err != nil {
				return nil, fmt.Errorf("at 0x%x: %w", pc, err)
			}
			pc += num
		case OptCodeF32Const:
			pc += 4
		case OptCodeF64Const:
			pc += 8
		default:
			if op >= OptCodeI32Load && op <= OptCodeI64Store32 {
				for i := 0; i < 2; i++ { // align, offset
					_, num, err := leb128.DecodeUint32(body[pc+1:])
					if err != nil {
						return nil, fmt.Errorf("at 0x%x: %w", pc, err)
					}
					pc += num
				}
			}
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed block at 0x%x", stack[len(stack)-1].StartAt)
	}
	return blocks, nil
}
