package script

import (
	"fmt"

	"github.com/deepteams/dirplayer/internal/diag"
)

// objCallRewrites is the small set of ObjCall method names spec.md
// §4.7 says get rewritten to a dedicated node kind instead of a plain
// call (bracket access, assignment, chunk-hilite, chunk-delete, put).
var objCallRewrites = map[string]bool{
	"getAt": true, "setAt": true, "hilite": true, "delete": true,
	"getProp": true, "getPropRef": true, "setProp": true, "count": true,
	"setContentsBefore": true, "setContentsAfter": true,
}

// translator holds the mutable state of one handler's single-pass
// translation (spec.md §4.7): the expression stack, the block stack,
// and the block-context stack recording what construct each open
// block belongs to.
type translator struct {
	handler Handler
	globals NameTable
	code    []Instruction
	tags    Tags
	arena   *Arena
	sink    *diag.Sink

	exprStack  []NodeRef
	blockStack []blockCtx
}

// blockCtx records what construct the current open block belongs to,
// so closing it (step 1 of spec.md §4.7) knows what to do next.
type blockCtx struct {
	kind     blockCtxKind
	block    BlockRef
	node     NodeRef // the owning statement node (If/Case/Tell/repeat)
	loopHead int      // bytecode index of the owning JmpIfZ, for ctxRepeat
}

type blockCtxKind int

const (
	ctxIfBlock1 blockCtxKind = iota
	ctxIfBlock2
	ctxCaseLabel
	ctxCaseOtherwise
	ctxTell
	ctxRepeat
)

// Translate runs the single-pass translator over a tagged handler and
// returns its AST (spec.md §4.7).
func Translate(h Handler, globals NameTable, sink *diag.Sink) *AST {
	tags := Tag(h.Bytecode)
	arena := NewArena()
	root := arena.NewBlock(endOfCode(h.Bytecode))

	tr := &translator{
		handler: h,
		globals: globals,
		code:    h.Bytecode,
		tags:    tags,
		arena:   arena,
		sink:    sink,
	}
	tr.blockStack = []blockCtx{{kind: ctxTell, block: root, node: NoRef}}

	for i := 0; i < len(h.Bytecode); i++ {
		tr.closeFinishedBlocks(h.Bytecode[i].Pos)

		if tags.Tag[i] == TagSkip || tags.Tag[i] == TagNextRepeatTarget {
			continue
		}
		tr.step(i)
	}
	tr.closeFinishedBlocks(endOfCode(h.Bytecode))

	return &AST{Arena: arena, Root: root}
}

func endOfCode(code []Instruction) int {
	if len(code) == 0 {
		return 0
	}
	last := code[len(code)-1]
	return last.Pos + 1
}

func (tr *translator) currentBlock() BlockRef {
	return tr.blockStack[len(tr.blockStack)-1].block
}

// closeFinishedBlocks implements spec.md §4.7 step 1: while the
// current byte position equals the current block's end_pos, pop it,
// acting on what its context demands next.
func (tr *translator) closeFinishedBlocks(pos int) {
	for len(tr.blockStack) > 1 {
		top := tr.blockStack[len(tr.blockStack)-1]
		if tr.arena.Block(top.block).EndPos > pos {
			break
		}
		tr.blockStack = tr.blockStack[:len(tr.blockStack)-1]

		if top.kind == ctxIfBlock1 {
			ifNode := tr.arena.Node(top.node)
			if ifNode.HasElse {
				tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxIfBlock2, block: ifNode.Block2, node: top.node})
			}
		}
		// ctxCaseLabel's otherwise/end handling is driven directly from
		// the Jmp dispatch that built the label; natural body-end here
		// needs no further action.
	}
}

func (tr *translator) push(ref NodeRef) { tr.exprStack = append(tr.exprStack, ref) }

func (tr *translator) pop() NodeRef {
	if len(tr.exprStack) == 0 {
		return tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralInt, IntVal: 0})
	}
	n := tr.exprStack[len(tr.exprStack)-1]
	tr.exprStack = tr.exprStack[:len(tr.exprStack)-1]
	return n
}

func (tr *translator) emitStmt(ref NodeRef, idx int) {
	tr.arena.Node(ref).BytecodeIndices = append(tr.arena.Node(ref).BytecodeIndices, idx)
	tr.arena.Append(tr.currentBlock(), ref)
}

func (tr *translator) literalOf(h Handler, idx int) Literal {
	if idx < 0 || idx >= len(h.Literals) {
		return Literal{Kind: LiteralInt, Int: 0}
	}
	return h.Literals[idx]
}

// step dispatches one untagged instruction per spec.md §4.7 step 3.
func (tr *translator) step(i int) {
	instr := tr.code[i]
	switch instr.Opcode {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNtEq, OpLt, OpLtEq, OpGt, OpGtEq,
		OpAnd, OpOr, OpContainsStr, OpContains0Str, OpJoinStr, OpJoinPadStr:
		right := tr.pop()
		left := tr.pop()
		tr.push(tr.arena.NewNode(Node{Kind: NodeBinaryOp, Op: instr.Opcode, Left: left, Right: right, BytecodeIndices: []int{i}}))

	case OpNot, OpInv:
		operand := tr.pop()
		tr.push(tr.arena.NewNode(Node{Kind: NodeUnaryOp, Op: instr.Opcode, Left: operand, BytecodeIndices: []int{i}}))

	case OpPushInt8, OpPushInt16, OpPushInt32:
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralInt, IntVal: instr.Operand, BytecodeIndices: []int{i}}))
	case OpPushFloat32:
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralFloat, FloatVal: float64(instr.Operand), BytecodeIndices: []int{i}}))
	case OpPushZero:
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralInt, IntVal: 0, BytecodeIndices: []int{i}}))
	case OpPushSymb:
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralString, StrVal: tr.globals.Name(int(instr.Operand)), BytecodeIndices: []int{i}}))
	case OpPushVarRef:
		tr.push(tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: ScopeGlobal, NameID: int(instr.Operand), BytecodeIndices: []int{i}}))
	case OpPushCons:
		lit := tr.literalOf(tr.handler, int(instr.Operand))
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: lit.Kind, IntVal: lit.Int, FloatVal: lit.Float, StrVal: lit.Str, BytecodeIndices: []int{i}}))

	case OpPushArgList, OpPushArgListNoRet:
		n := int(instr.Operand)
		args := make([]NodeRef, n)
		for k := n - 1; k >= 0; k-- {
			args[k] = tr.pop()
		}
		tr.push(tr.arena.NewNode(Node{Kind: NodeLiteral, LiteralKind: LiteralInt, IntVal: int64(len(args)), Args: args, HasRet: instr.Opcode == OpPushArgList, BytecodeIndices: []int{i}}))
	case OpPushList, OpPushPropList:
		// The payload is already on the stack from the preceding
		// PushArgList; it is left as is, with no separate list or
		// prop-list tag recorded.
		top := tr.pop()
		tr.push(top)

	case OpGetGlobal:
		tr.push(tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: ScopeGlobal, NameID: int(instr.Operand), BytecodeIndices: []int{i}}))
	case OpSetGlobal:
		tr.emitAssign(i, ScopeGlobal, int(instr.Operand))
	case OpGetProp:
		tr.push(tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: ScopeProperty, NameID: int(instr.Operand), BytecodeIndices: []int{i}}))
	case OpSetProp:
		tr.emitAssign(i, ScopeProperty, int(instr.Operand))
	case OpGetParam:
		tr.push(tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: ScopeArgument, NameID: tr.handler.resolveVariable(instr.Operand), BytecodeIndices: []int{i}}))
	case OpSetParam:
		tr.emitAssign(i, ScopeArgument, tr.handler.resolveVariable(instr.Operand))
	case OpGetLocal:
		tr.push(tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: ScopeLocal, NameID: tr.handler.resolveVariable(instr.Operand), BytecodeIndices: []int{i}}))
	case OpSetLocal:
		tr.emitAssign(i, ScopeLocal, tr.handler.resolveVariable(instr.Operand))

	case OpGetField:
		member := tr.arena.NewNode(Node{Kind: NodeMember, MemberType: "field", MemberID: tr.pop(), MemberCastID: NoRef, BytecodeIndices: []int{i}})
		tr.push(member)
	case OpHiliteChunk:
		tr.push(tr.arena.NewNode(Node{Kind: NodeChunkHilite, ChunkRef: tr.pop(), BytecodeIndices: []int{i}}))

	case OpGetChunk:
		target := tr.pop()
		var brackets []ChunkBracket
		for _, kind := range []ChunkKind{ChunkLine, ChunkItem, ChunkWord, ChunkChar} {
			last := tr.pop()
			first := tr.pop()
			if isZeroLiteral(tr.arena, first) && isZeroLiteral(tr.arena, last) {
				continue
			}
			brackets = append(brackets, ChunkBracket{Kind: kind, First: first, Last: last})
		}
		tr.push(tr.arena.NewNode(Node{Kind: NodeChunkExpr, ChunkTarget: target, ChunkBrackets: brackets, BytecodeIndices: []int{i}}))

	case OpPut:
		putKind, varType := decodePutOperand(instr.Operand)
		value := tr.pop()
		dest := tr.pop()
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodePut, PutKind: putKind, PutVar: varType, PutValue: value, PutDest: dest}), i)
	case OpPutChunk:
		putKind, varType := decodePutOperand(instr.Operand)
		chunk := tr.pop()
		value := tr.pop()
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodePut, PutKind: putKind, PutVar: varType, PutValue: value, PutDest: chunk}), i)
	case OpDeleteChunk:
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeChunkDelete, ChunkRef: tr.pop()}), i)

	case OpGet, OpGetObjProp, OpGetChainedProp, OpGetMovieProp:
		propType, propID := decodePropertyOperand(instr.Operand)
		var target NodeRef = NoRef
		if instr.Opcode == OpGetObjProp || instr.Opcode == OpGetChainedProp {
			target = tr.pop()
		}
		tr.push(tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: target, PropName: propertyName(propType, propID), PropIndex: NoRef, BytecodeIndices: []int{i}}))
	case OpSet, OpSetObjProp, OpSetMovieProp:
		propType, propID := decodePropertyOperand(instr.Operand)
		value := tr.pop()
		var target NodeRef = NoRef
		if instr.Opcode == OpSetObjProp {
			target = tr.pop()
		}
		propRef := tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: target, PropName: propertyName(propType, propID), PropIndex: NoRef})
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeAssignment, NameID: -1, Value: value, PropTarget: propRef}), i)

	case OpSwap:
		if len(tr.exprStack) >= 2 {
			n := len(tr.exprStack)
			tr.exprStack[n-1], tr.exprStack[n-2] = tr.exprStack[n-2], tr.exprStack[n-1]
		}

	case OpLocalCall, OpExtCall, OpTellCall, OpObjCall, OpObjCallV4, OpNewObj:
		tr.dispatchCall(i, instr)

	case OpStartTell:
		target := tr.pop()
		body := tr.arena.NewBlock(-1) // end_pos fixed by the matching EndTell
		node := tr.arena.NewNode(Node{Kind: NodeTell, TellTarget: target, TellBody: body})
		tr.emitStmt(node, i)
		tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxTell, block: body, node: node})
	case OpEndTell:
		if len(tr.blockStack) > 1 {
			tr.arena.Block(tr.currentBlock()).EndPos = instr.Pos
			tr.blockStack = tr.blockStack[:len(tr.blockStack)-1]
		}

	case OpRet, OpRetFactory:
		if i != len(tr.code)-1 {
			tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeExit}), i)
		}

	case OpJmp:
		tr.dispatchJmp(i, instr)
	case OpJmpIfZ:
		tr.dispatchJmpIfZ(i, instr)

	case OpPeek:
		tr.dispatchPeek(i)

	case OpPop:
		if instr.Operand == 1 && tr.atCaseOtherwiseBoundary(i) {
			tr.beginOtherwiseOnlyCase(i)
		}

	default:
		tr.recoverUnknownOpcode(i, instr)
	}
}

func (tr *translator) emitAssign(i int, scope ScopeKind, nameID int) {
	value := tr.pop()
	ref := tr.arena.NewNode(Node{Kind: NodeVarRef, Scope: scope, NameID: nameID})
	tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeAssignment, Scope: scope, NameID: nameID, Value: value, PropTarget: ref}), i)
}

func isZeroLiteral(a *Arena, ref NodeRef) bool {
	n := a.Node(ref)
	return n.Kind == NodeLiteral && n.LiteralKind == LiteralInt && n.IntVal == 0
}

// decodePutOperand splits a Put/PutChunk/DeleteChunk operand into its
// high-nibble put-type and low-nibble var-type (spec.md §4.7).
func decodePutOperand(operand int64) (PutType, VarType) {
	return PutType((operand >> 4) & 0xF), VarType(operand & 0xF)
}

// decodePropertyOperand splits a property-accessor operand into a
// (property-type, property-id) pair the same way: high byte selects
// the property-type family (cast/menu/sound/sprite/movie/field
// member), low byte indexes into that family's property table.
func decodePropertyOperand(operand int64) (int, int) {
	return int((operand >> 8) & 0xFF), int(operand & 0xFF)
}

// propertyName renders a decoded (type, id) pair as a property
// identifier string; the id tables themselves are an external
// collaborator's concern (spec.md §1), so unknown ids fall back to a
// numbered placeholder rather than failing.
func propertyName(propType, propID int) string {
	if name, ok := propertyNames[propType][propID]; ok {
		return name
	}
	return fmt.Sprintf("prop_%d_%d", propType, propID)
}

// propertyNames is a minimal seed table for the common movie/sprite
// properties; entries absent here still render via the numbered
// fallback above rather than failing translation.
var propertyNames = map[int]map[int]string{
	0: {0: "castLib", 1: "number", 2: "name"},
	1: {0: "loc", 1: "locH", 2: "locV", 3: "ink", 4: "visible"},
	2: {0: "frame", 1: "frameLabel"},
}

func (tr *translator) dispatchCall(i int, instr Instruction) {
	argsRef := tr.pop()
	argsNode := tr.arena.Node(argsRef)
	args := argsNode.Args

	name := tr.globals.Name(int(instr.Operand))

	switch instr.Opcode {
	case OpObjCall, OpObjCallV4:
		receiver := tr.pop()
		if objCallRewrites[name] {
			tr.rewriteObjCall(i, name, receiver, args)
			return
		}
		call := tr.arena.NewNode(Node{Kind: NodeObjCall, CallName: name, CallTarget: receiver, Args: args, HasRet: argsNode.HasRet, BytecodeIndices: []int{i}})
		tr.pushOrEmit(call, i)
	case OpTellCall:
		call := tr.arena.NewNode(Node{Kind: NodeTellCall, CallName: name, Args: args, HasRet: argsNode.HasRet, BytecodeIndices: []int{i}})
		tr.pushOrEmit(call, i)
	case OpNewObj:
		call := tr.arena.NewNode(Node{Kind: NodeNewObj, CallName: name, Args: args, HasRet: argsNode.HasRet, BytecodeIndices: []int{i}})
		tr.pushOrEmit(call, i)
	default: // OpLocalCall, OpExtCall
		kind := NodeLocalCall
		if instr.Opcode == OpExtCall {
			kind = NodeExtCall
		}
		call := tr.arena.NewNode(Node{Kind: kind, CallName: name, Args: args, HasRet: argsNode.HasRet, BytecodeIndices: []int{i}})
		tr.pushOrEmit(call, i)
	}
}

// pushOrEmit pushes a call whose argument list came from PushArgList
// (HasRet: its value is used) as an expression, and appends a call
// whose argument list came from PushArgListNoRet to the current block
// as a statement, which the code writer renders as a bare call line.
func (tr *translator) pushOrEmit(ref NodeRef, i int) {
	if !tr.arena.Node(ref).HasRet {
		tr.arena.Append(tr.currentBlock(), ref)
		return
	}
	tr.push(ref)
}

// rewriteObjCall implements spec.md §4.7's ObjCall special-method
// rewrites: getAt/setAt to bracket access, hilite to ChunkHilite,
// delete to ChunkDelete, getProp/setProp to property access,
// setContentsBefore/After to Put, count to a property read.
func (tr *translator) rewriteObjCall(i int, name string, receiver NodeRef, args []NodeRef) {
	switch name {
	case "getAt":
		idx := firstArg(args)
		tr.push(tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: receiver, PropIndex: idx, BytecodeIndices: []int{i}}))
	case "setAt":
		idx := firstArg(args)
		value := secondArg(args)
		propRef := tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: receiver, PropIndex: idx})
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeAssignment, Value: value, PropTarget: propRef}), i)
	case "hilite":
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeChunkHilite, ChunkRef: receiver}), i)
	case "delete":
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeChunkDelete, ChunkRef: receiver}), i)
	case "getProp", "getPropRef":
		tr.push(tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: receiver, PropName: literalName(tr.arena, firstArg(args)), PropIndex: NoRef, BytecodeIndices: []int{i}}))
	case "setProp":
		propRef := tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: receiver, PropName: literalName(tr.arena, firstArg(args))})
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeAssignment, Value: secondArg(args), PropTarget: propRef}), i)
	case "count":
		tr.push(tr.arena.NewNode(Node{Kind: NodeObjProp, PropTarget: receiver, PropName: "count", PropIndex: NoRef, BytecodeIndices: []int{i}}))
	case "setContentsBefore":
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodePut, PutKind: PutBefore, PutValue: firstArg(args), PutDest: receiver}), i)
	case "setContentsAfter":
		tr.emitStmt(tr.arena.NewNode(Node{Kind: NodePut, PutKind: PutAfter, PutValue: firstArg(args), PutDest: receiver}), i)
	}
}

func firstArg(args []NodeRef) NodeRef {
	if len(args) == 0 {
		return NoRef
	}
	return args[0]
}

func secondArg(args []NodeRef) NodeRef {
	if len(args) < 2 {
		return NoRef
	}
	return args[1]
}

func literalName(a *Arena, ref NodeRef) string {
	if ref == NoRef {
		return ""
	}
	n := a.Node(ref)
	if n.Kind == NodeLiteral && n.LiteralKind == LiteralString {
		return n.StrVal
	}
	return ""
}

// dispatchJmp implements spec.md §4.7's Jmp classification chain.
func (tr *translator) dispatchJmp(i int, instr Instruction) {
	target := instr.Pos + int(instr.Operand)

	if loop, ok := tr.nearestEnclosingLoop(); ok {
		if epilogueEnd, isEnd := tr.loopExitTarget(loop); isEnd && target == epilogueEnd {
			tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeExitRepeat}), i)
			return
		}
		if nextTarget, isNext := tr.loopNextTarget(loop); isNext && target == nextTarget {
			tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeNextRepeat}), i)
			return
		}
	}

	if ctx, ok := tr.topIfBlock1(); ok {
		tr.arena.Node(ctx.node).HasElse = true
		block2 := tr.arena.NewBlock(target)
		tr.arena.Node(ctx.node).Block2 = block2
		return
	}

	if ctx, ok := tr.topCaseLabel(); ok {
		_ = ctx
		tr.arena.Block(tr.currentBlock()).EndPos = target
		return
	}

	if tr.targetIsPop1(target) {
		tr.beginOtherwiseOnlyCase(i)
		return
	}

	tr.recoverAmbiguousJmp(i, instr)
}

func (tr *translator) targetIsPop1(target int) bool {
	for _, instr := range tr.code {
		if instr.Pos == target {
			return instr.Opcode == OpPop && instr.Operand == 1
		}
	}
	return false
}

func (tr *translator) nearestEnclosingLoop() (LoopInfo, bool) {
	for j := len(tr.blockStack) - 1; j >= 0; j-- {
		if tr.blockStack[j].kind == ctxRepeat {
			info, ok := tr.tags.Loops[tr.blockStack[j].loopHead]
			return info, ok
		}
	}
	return LoopInfo{}, false
}

func (tr *translator) loopExitTarget(loop LoopInfo) (int, bool) {
	if loop.EndIndex <= 0 || loop.EndIndex >= len(tr.code) {
		return 0, false
	}
	// One past the EndRepeat: the position of the instruction after it.
	return tr.code[loop.EndIndex].Pos, true
}

func (tr *translator) loopNextTarget(loop LoopInfo) (int, bool) {
	for idx, owner := range tr.tags.Owner {
		if owner == loop.HeadIndex && tr.tags.Tag[idx] == TagNextRepeatTarget {
			return tr.code[idx].Pos, true
		}
	}
	return 0, false
}

func (tr *translator) topIfBlock1() (blockCtx, bool) {
	top := tr.blockStack[len(tr.blockStack)-1]
	return top, top.kind == ctxIfBlock1
}

func (tr *translator) topCaseLabel() (blockCtx, bool) {
	top := tr.blockStack[len(tr.blockStack)-1]
	return top, top.kind == ctxCaseLabel
}

func (tr *translator) atCaseOtherwiseBoundary(i int) bool {
	_, ok := tr.topCaseLabel()
	return ok
}

// beginOtherwiseOnlyCase synthesises an empty case with only an
// otherwise clause (spec.md §4.7 step 3 final bullet; §8 scenario 3).
func (tr *translator) beginOtherwiseOnlyCase(i int) {
	value := tr.pop()
	body := tr.arena.NewBlock(-1)
	node := tr.arena.NewNode(Node{Kind: NodeCase, CaseValue: value, HasOtherwise: true, OtherwiseBody: body})
	tr.emitStmt(node, i)
	tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxCaseOtherwise, block: body, node: node})
}

// dispatchJmpIfZ implements spec.md §4.7's If/repeat-head handling.
func (tr *translator) dispatchJmpIfZ(i int, instr Instruction) {
	target := instr.Pos + int(instr.Operand)
	if loop, tagged := tr.tags.Loops[i]; tagged {
		tr.buildLoopNode(i, loop)
		return
	}

	cond := tr.pop()
	block1 := tr.arena.NewBlock(target)
	ifNode := tr.arena.NewNode(Node{Kind: NodeIf, Cond: cond, Block1: block1})
	tr.emitStmt(ifNode, i)
	tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxIfBlock1, block: block1, node: ifNode})
}

func (tr *translator) buildLoopNode(i int, loop LoopInfo) {
	bodyEnd := tr.code[loop.EndIndex-1].Pos + 1
	body := tr.arena.NewBlock(bodyEnd)
	scope, nameID, hasVar := tr.loopVarName(loop)

	var node NodeRef
	switch loop.Kind {
	case LoopWhile:
		cond := tr.pop()
		node = tr.arena.NewNode(Node{Kind: NodeRepeatWhile, LoopCond: cond, Body: body})
	case LoopTo:
		to := tr.pop()
		from := tr.pop()
		down := tr.code[i-1].Opcode == OpGtEq
		n := Node{Kind: NodeRepeatTo, LoopFrom: from, LoopTo: to, LoopDown: down, Body: body, HasLoopVar: hasVar}
		if hasVar {
			n.Scope, n.NameID = scope, nameID
		}
		node = tr.arena.NewNode(n)
	case LoopIn:
		list := tr.pop()
		n := Node{Kind: NodeRepeatIn, LoopList: list, Body: body, HasLoopVar: hasVar}
		if hasVar {
			n.Scope, n.NameID = scope, nameID
		}
		node = tr.arena.NewNode(n)
	}
	tr.emitStmt(node, i)
	tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxRepeat, block: body, node: node, loopHead: i})
}

// loopVarName recovers the loop variable's scope and name id from the
// Set* instruction the tagger located at loop.VarIndex, mirroring the
// original decompiler's get_var_name_from_set dispatch on the opcode
// that assigns the loop counter/item each iteration.
func (tr *translator) loopVarName(loop LoopInfo) (scope ScopeKind, nameID int, ok bool) {
	if loop.VarIndex < 0 || loop.VarIndex >= len(tr.code) {
		return 0, 0, false
	}
	instr := tr.code[loop.VarIndex]
	switch instr.Opcode {
	case OpSetGlobal:
		return ScopeGlobal, int(instr.Operand), true
	case OpSetProp:
		return ScopeProperty, int(instr.Operand), true
	case OpSetParam:
		return ScopeArgument, tr.handler.resolveVariable(instr.Operand), true
	case OpSetLocal:
		return ScopeLocal, tr.handler.resolveVariable(instr.Operand), true
	default:
		return 0, 0, false
	}
}

// dispatchPeek implements spec.md §4.7's case-statement construction:
// recursively translate forward until the stack depth grows by one and
// the next opcode is Eq/NtEq, then record a case label.
func (tr *translator) dispatchPeek(i int) {
	base := tr.pop() // the value being cased on; re-pushed below
	tr.push(base)

	j := i + 1
	startDepth := len(tr.exprStack)
	for j < len(tr.code) {
		if tr.tags.Tag[j] == TagSkip || tr.tags.Tag[j] == TagNextRepeatTarget {
			j++
			continue
		}
		tr.step(j)
		if len(tr.exprStack) == startDepth+1 && (tr.code[j].Opcode == OpEq || tr.code[j].Opcode == OpNtEq) {
			break
		}
		j++
	}

	cmpValue := tr.pop()
	labelBody := tr.arena.NewBlock(-1)
	label := tr.arena.NewNode(Node{Kind: NodeCaseLabel, LabelValues: []NodeRef{cmpValue}, LabelBody: labelBody})

	if existingCase, ok := tr.currentOpenCase(); ok {
		cn := tr.arena.Node(existingCase)
		cn.Labels = append(cn.Labels, label)
	} else {
		caseNode := tr.arena.NewNode(Node{Kind: NodeCase, CaseValue: base, Labels: []NodeRef{label}})
		tr.emitStmt(caseNode, i)
	}
	tr.blockStack = append(tr.blockStack, blockCtx{kind: ctxCaseLabel, block: labelBody, node: label})
}

func (tr *translator) currentOpenCase() (NodeRef, bool) {
	for j := len(tr.blockStack) - 1; j >= 0; j-- {
		if tr.blockStack[j].kind == ctxCaseLabel {
			continue
		}
		b := tr.arena.Block(tr.blockStack[j].block)
		for k := len(b.Nodes) - 1; k >= 0; k-- {
			if n := tr.arena.Node(b.Nodes[k]); n.Kind == NodeCase {
				return b.Nodes[k], true
			}
		}
		return NoRef, false
	}
	return NoRef, false
}

func (tr *translator) recoverUnknownOpcode(i int, instr Instruction) {
	tr.exprStack = nil
	msg := fmt.Sprintf("ERROR: unknown opcode %d (operand %d)", instr.Opcode, instr.Operand)
	tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeComment, CommentText: msg}), i)
	if tr.sink != nil {
		tr.sink.Record("script.translate", "%s at bytecode index %d", msg, i)
	}
}

func (tr *translator) recoverAmbiguousJmp(i int, instr Instruction) {
	tr.emitStmt(tr.arena.NewNode(Node{Kind: NodeComment, CommentText: "ERROR: Could not identify jmp"}), i)
	if tr.sink != nil {
		tr.sink.Record("script.translate", "ambiguous jmp at bytecode index %d (operand %d)", i, instr.Operand)
	}
}
