package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instr(pos int, op Opcode, operand int64) Instruction {
	return Instruction{Pos: pos, Opcode: op, Operand: operand}
}

func TestEmptyHandlerProducesZeroLines(t *testing.T) {
	h := Handler{VariableMultiplier: 1}
	ast := Translate(h, NameTable{}, nil)
	root := ast.Arena.Block(ast.Root)
	assert.Empty(t, root.Nodes)
}

func TestExpressionStackEmptyAfterTranslation(t *testing.T) {
	// GetLocal 0; PushInt8 1; Add; SetLocal 0; Ret
	h := Handler{
		VariableMultiplier: 1,
		Bytecode: []Instruction{
			instr(0, OpGetLocal, 0),
			instr(1, OpPushInt8, 1),
			instr(2, OpAdd, 0),
			instr(3, OpSetLocal, 0),
			instr(4, OpRet, 0),
		},
	}
	tr := &translator{handler: h, code: h.Bytecode, tags: Tag(h.Bytecode), arena: NewArena()}
	root := tr.arena.NewBlock(endOfCode(h.Bytecode))
	tr.blockStack = []blockCtx{{kind: ctxTell, block: root, node: NoRef}}
	for i := range h.Bytecode {
		tr.closeFinishedBlocks(h.Bytecode[i].Pos)
		tr.step(i)
	}
	assert.Empty(t, tr.exprStack)
}

func TestIfElseTranslation(t *testing.T) {
	// GetLocal 0; PushInt8 0; Gt; JmpIfZ(+K to else); ...; Jmp(to end); else:...; end:
	// Layout (positions): 0:GetLocal 1:PushInt8 2:Gt 3:JmpIfZ 4:(body stmt placeholder via PushInt8+Pop) ...
	code := []Instruction{
		instr(0, OpGetLocal, 0),
		instr(1, OpPushInt8, 0),
		instr(2, OpGt, 0),
		instr(3, OpJmpIfZ, 4), // target = 3+4 = 7 (else branch start)
		instr(4, OpPushInt8, 1),
		instr(5, OpSetLocal, 0),
		instr(6, OpJmp, 3), // target = 6+3 = 9 (end)
		instr(7, OpPushInt8, 2),
		instr(8, OpSetLocal, 0),
		instr(9, OpRet, 0),
	}
	h := Handler{VariableMultiplier: 1, Bytecode: code}
	ast := Translate(h, NameTable{Names: []string{"x"}}, nil)
	root := ast.Arena.Block(ast.Root)
	require.Len(t, root.Nodes, 1)

	ifNode := ast.Arena.Node(root.Nodes[0])
	assert.Equal(t, NodeIf, ifNode.Kind)
	assert.True(t, ifNode.HasElse)
}

func TestTaggerRecognisesWhileLoop(t *testing.T) {
	code := []Instruction{
		instr(0, OpGetLocal, 0),
		instr(1, OpPushInt8, 10),
		instr(2, OpLt, 0),
		instr(3, OpJmpIfZ, 4), // target = 7, one past EndRepeat at index 6
		instr(4, OpGetLocal, 0),
		instr(5, OpJmp, -5), // back-edge to pos 0
		instr(6, OpEndRepeat, 6),
		instr(7, OpRet, 0), // gives the tagger an instruction at the post-loop position
	}
	tags := Tag(code)
	info, ok := tags.Loops[3]
	require.True(t, ok)
	assert.Equal(t, LoopWhile, info.Kind)
	assert.Equal(t, TagNextRepeatTarget, tags.Tag[6])
}

func TestUnknownOpcodeRecoversWithComment(t *testing.T) {
	code := []Instruction{
		{Pos: 0, Opcode: Opcode(9999), Operand: 42},
		instr(1, OpRet, 0),
	}
	h := Handler{VariableMultiplier: 1, Bytecode: code}
	ast := Translate(h, NameTable{}, nil)
	root := ast.Arena.Block(ast.Root)
	require.Len(t, root.Nodes, 1)
	assert.Equal(t, NodeComment, ast.Arena.Node(root.Nodes[0]).Kind)
}
