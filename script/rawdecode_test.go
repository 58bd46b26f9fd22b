package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u16(v int) []byte { return []byte{byte(v >> 8), byte(v)} }
func u32(v int) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

// buildHandlerRecord assembles a minimal self-contained encoding this
// module's own DecodeHandler reads: name id, three empty name-id
// lists, an empty literal pool, a variable multiplier, then the
// instruction stream, then an empty trailing name table.
func buildHandlerRecord(instrs []Instruction) []byte {
	var b []byte
	b = append(b, u16(0)...)  // NameID
	b = append(b, u16(0)...)  // arg count
	b = append(b, u16(0)...)  // local count
	b = append(b, u16(0)...)  // global count
	b = append(b, u16(0)...)  // literal count
	b = append(b, u16(1)...)  // variable multiplier
	b = append(b, u32(len(instrs))...)
	for _, ins := range instrs {
		b = append(b, byte(ins.Opcode))
		b = append(b, u32(int(ins.Operand))...)
	}
	b = append(b, u16(0)...) // name table count
	return b
}

func TestDecodeHandlerRoundTripsInstructions(t *testing.T) {
	data := buildHandlerRecord([]Instruction{
		{Opcode: OpPushInt8, Operand: 3},
		{Opcode: OpRet, Operand: 0},
	})

	h, names, err := DecodeHandler(data)
	require.NoError(t, err)
	require.Len(t, h.Bytecode, 2)
	assert.Equal(t, OpPushInt8, h.Bytecode[0].Opcode)
	assert.Equal(t, 0, h.Bytecode[0].Pos)
	assert.Equal(t, instructionWordSize, h.Bytecode[1].Pos)
	assert.Equal(t, 1, h.VariableMultiplier)
	assert.Empty(t, names.Names)
}

func TestDecodeHandlerTruncatedRecordErrors(t *testing.T) {
	data := buildHandlerRecord([]Instruction{{Opcode: OpRet, Operand: 0}})
	_, _, err := DecodeHandler(data[:len(data)-3])
	assert.Error(t, err)
}
