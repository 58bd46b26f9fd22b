package script

import (
	"fmt"
	"math"

	"github.com/deepteams/dirplayer/internal/binreader"
)

// instructionWordSize is the raw encoded width of one bytecode
// instruction: a one-byte opcode followed by a 4-byte signed operand.
// spec.md §6 hands this module raw Lscr/Lnam chunk bytes but, unlike
// the packed-number styled-text format, never specifies Lscr's own
// wire layout, and original_source/'s decompiler operates on an
// already-parsed bytecode array rather than the raw chunk bytes, so no
// reference copy of this specific layout exists in the pack either —
// this fixed-width encoding is this module's own choice, documented in
// DESIGN.md's Open Questions. Pos is each instruction's byte offset
// (index × instructionWordSize), the base dispatchJmp/dispatchJmpIfZ
// add their relative operand to.
const instructionWordSize = 5

// DecodeHandler parses one Lscr handler record (name ids, literal
// pool, and its instruction stream) plus the sibling Lnam name table
// into the shapes the tagger and translator consume.
func DecodeHandler(data []byte) (Handler, NameTable, error) {
	r := binreader.New(data, binreader.BigEndian)

	var h Handler
	h.NameID = int(r.U16())
	h.ArgNameIDs = readNameIDs(r)
	h.LocalNameIDs = readNameIDs(r)
	h.GlobalNameIDs = readNameIDs(r)
	h.Literals = readLiterals(r)
	h.VariableMultiplier = int(r.U16())
	if h.VariableMultiplier <= 0 {
		h.VariableMultiplier = 1
	}

	instrCount := int(r.U32())
	h.Bytecode = make([]Instruction, 0, instrCount)
	for i := 0; i < instrCount; i++ {
		op := Opcode(r.U8())
		operand := int64(r.I32())
		h.Bytecode = append(h.Bytecode, Instruction{
			Opcode:  op,
			Operand: operand,
			Pos:     i * instructionWordSize,
		})
	}

	if r.Err() != nil {
		return h, NameTable{}, fmt.Errorf("script: handler record truncated: %w", r.Err())
	}

	names := NameTable{Names: readStringTable(r)}
	return h, names, nil
}

func readNameIDs(r *binreader.Reader) []int {
	count := int(r.U16())
	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, int(r.U16()))
	}
	return ids
}

func readLiterals(r *binreader.Reader) []Literal {
	count := int(r.U16())
	out := make([]Literal, 0, count)
	for i := 0; i < count; i++ {
		kind := r.U8()
		switch kind {
		case 0:
			out = append(out, Literal{Kind: LiteralInt, Int: int64(r.I32())})
		case 1:
			bits := r.U64()
			out = append(out, Literal{Kind: LiteralFloat, Float: math.Float64frombits(bits)})
		default:
			n := int(r.U16())
			out = append(out, Literal{Kind: LiteralString, Str: string(r.Bytes(n))})
		}
	}
	return out
}

func readStringTable(r *binreader.Reader) []string {
	count := int(r.U16())
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		n := int(r.U16())
		out = append(out, string(r.Bytes(n)))
	}
	return out
}
