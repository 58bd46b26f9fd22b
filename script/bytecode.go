// Package script implements the bytecode tagger and translator
// (spec.md §4.6, §4.7): recovering a structured AST from a stack-based
// opcode stream emitted for one script handler.
package script

// Opcode enumerates the stack-machine instructions a handler's
// bytecode array is made of (spec.md §3 "Bytecode instruction").
// Grouped by concern in contiguous iota blocks, following the
// stack-machine opcode style of the wider example pack rather than the
// teacher (which has no bytecode VM of its own).
type Opcode int

const (
	OpNop Opcode = iota

	// Arithmetic / comparison / logical binops.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNtEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpContainsStr
	OpContains0Str
	OpJoinStr
	OpJoinPadStr

	// Unary ops.
	OpNot
	OpInv

	// Literal pushes.
	OpPushInt8
	OpPushInt16
	OpPushInt32
	OpPushFloat32
	OpPushZero
	OpPushSymb
	OpPushVarRef
	OpPushCons

	// List construction.
	OpPushArgList
	OpPushArgListNoRet
	OpPushList
	OpPushPropList

	// Variable access, by scope kind.
	OpGetGlobal
	OpSetGlobal
	OpGetProp
	OpSetProp
	OpGetParam
	OpSetParam
	OpGetLocal
	OpSetLocal

	// Field / chunk access.
	OpGetField
	OpHiliteChunk
	OpGetChunk
	OpPut
	OpPutChunk
	OpDeleteChunk

	// Property accessors.
	OpGet
	OpSet
	OpGetObjProp
	OpSetObjProp
	OpGetChainedProp
	OpGetMovieProp
	OpSetMovieProp

	OpSwap

	// Calls.
	OpLocalCall
	OpExtCall
	OpTellCall
	OpObjCall
	OpObjCallV4
	OpNewObj

	// Tell blocks.
	OpStartTell
	OpEndTell

	// Returns.
	OpRet
	OpRetFactory

	// Control flow.
	OpJmp
	OpJmpIfZ
	OpEndRepeat
	OpPeek
	OpPop
)

// Instruction is one decoded bytecode entry (spec.md §3): an opcode, a
// signed operand wide enough for any literal index or jump offset, and
// the instruction's own byte position within the handler's bytecode.
type Instruction struct {
	Opcode  Opcode
	Operand int64
	Pos     int
}

// Literal is one entry of a handler's literal pool: a compiled
// constant a PushCons instruction refers to by index.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

// LiteralKind discriminates the payload carried by a Literal.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
)

// Handler is one named procedure within a script (spec.md §3, GLOSSARY
// "Handler"): a name id into the script context's name table, ordered
// argument/local/global name ids, a literal pool, and the bytecode
// array to translate.
type Handler struct {
	NameID        int
	ArgNameIDs    []int
	LocalNameIDs  []int
	GlobalNameIDs []int
	Literals      []Literal
	Bytecode      []Instruction

	// VariableMultiplier divides a raw Get*/Set* operand before it
	// indexes into the local/argument name tables (spec.md §4.7 "Name
	// resolution"); typically 6, 1 in some source versions.
	VariableMultiplier int
}

// NameTable resolves a name id to its source-level identifier. Global
// and property names index directly into the script context's table;
// argument and local names are resolved relative to a Handler's own
// ArgNameIDs/LocalNameIDs after dividing by VariableMultiplier.
type NameTable struct {
	Names []string
}

// Name returns the name at id, or a synthesized placeholder if id is
// out of range (names tables are sourced from an external collaborator
// per spec.md §1 and are not assumed complete).
func (t NameTable) Name(id int) string {
	if id < 0 || id >= len(t.Names) {
		return "?"
	}
	return t.Names[id]
}

// resolveVariable divides a raw operand by the handler's variable
// multiplier (minimum 1) before using it as a table index, per spec.md
// §4.7 "Name resolution".
func (h Handler) resolveVariable(operand int64) int {
	mult := h.VariableMultiplier
	if mult <= 0 {
		mult = 1
	}
	return int(operand) / mult
}
