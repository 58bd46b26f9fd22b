// Package writer renders a script package AST to indented source
// lines and builds the bytecode-index<->line-index maps that drive
// debugger/source-view features downstream (spec.md §4.8).
package writer

import (
	"fmt"
	"strings"

	"github.com/deepteams/dirplayer/script"
)

// Line is one rendered source line: its indent depth, text, and the
// bytecode indices of every node that contributed to it.
type Line struct {
	Indent  int
	Text    string
	Indices []int
}

// Rendered is the code writer's output: the line array plus the
// bytecode_index -> line_index map spec.md §4.8 describes ("preferring
// the first line where a bytecode appears").
type Rendered struct {
	Lines          []Line
	BytecodeToLine map[int]int
}

type writer struct {
	names   script.NameTable
	handler script.Handler
	lines   []Line
}

// Render traverses the AST in source order and produces the rendered
// line array plus its bytecode-to-line map (spec.md §4.8).
func Render(ast *script.AST, h script.Handler, names script.NameTable) Rendered {
	w := &writer{names: names, handler: h}
	w.block(ast, ast.Root, 0)

	toLine := map[int]int{}
	for lineIdx, line := range w.lines {
		for _, idx := range line.Indices {
			if _, ok := toLine[idx]; !ok {
				toLine[idx] = lineIdx
			}
		}
	}
	return Rendered{Lines: w.lines, BytecodeToLine: toLine}
}

func (w *writer) emit(indent int, indices []int, format string, args ...any) {
	w.lines = append(w.lines, Line{Indent: indent, Text: fmt.Sprintf(format, args...), Indices: append([]int(nil), indices...)})
}

func (w *writer) block(ast *script.AST, ref script.BlockRef, indent int) {
	b := ast.Arena.Block(ref)
	for _, nodeRef := range b.Nodes {
		w.statement(ast, nodeRef, indent)
	}
}

// loopVarName resolves a repeat-with loop's counter/item name, falling
// back to "x" when the tagger couldn't locate the assigning Set*
// instruction (spec.md §4.6's with-in/with-to shapes aren't always
// fully present, e.g. a hand-edited or truncated handler).
func (w *writer) loopVarName(n *script.Node) string {
	if !n.HasLoopVar {
		return "x"
	}
	return w.varName(n.Scope, n.NameID)
}

// varName resolves a variable's name: local and argument ids index the
// handler's LocalNameIDs/ArgNameIDs first; other scopes index the name
// table directly.
func (w *writer) varName(scope script.ScopeKind, id int) string {
	ids := w.handler.LocalNameIDs
	if scope == script.ScopeArgument {
		ids = w.handler.ArgNameIDs
	} else if scope != script.ScopeLocal {
		return w.names.Name(id)
	}
	if id < 0 || id >= len(ids) {
		return w.names.Name(-1)
	}
	return w.names.Name(ids[id])
}

func (w *writer) statement(ast *script.AST, ref script.NodeRef, indent int) {
	n := ast.Arena.Node(ref)
	switch n.Kind {
	case script.NodeIf:
		w.emit(indent, n.BytecodeIndices, "if %s then", w.expr(ast, n.Cond))
		w.block(ast, n.Block1, indent+1)
		if n.HasElse {
			body := ast.Arena.Block(n.Block2)
			if len(body.Nodes) > 0 {
				w.emit(indent, nil, "else")
				w.block(ast, n.Block2, indent+1)
			}
		}
		w.emit(indent, nil, "end if")

	case script.NodeRepeatWhile:
		w.emit(indent, n.BytecodeIndices, "repeat while %s", w.expr(ast, n.LoopCond))
		w.block(ast, n.Body, indent+1)
		w.emit(indent, nil, "end repeat")

	case script.NodeRepeatTo:
		dir := "to"
		if n.LoopDown {
			dir = "down to"
		}
		w.emit(indent, n.BytecodeIndices, "repeat with %s = %s %s %s", w.loopVarName(n), w.expr(ast, n.LoopFrom), dir, w.expr(ast, n.LoopTo))
		w.block(ast, n.Body, indent+1)
		w.emit(indent, nil, "end repeat")

	case script.NodeRepeatIn:
		w.emit(indent, n.BytecodeIndices, "repeat with %s in %s", w.loopVarName(n), w.expr(ast, n.LoopList))
		w.block(ast, n.Body, indent+1)
		w.emit(indent, nil, "end repeat")

	case script.NodeTell:
		w.emit(indent, n.BytecodeIndices, "tell %s", w.expr(ast, n.TellTarget))
		w.block(ast, n.TellBody, indent+1)
		w.emit(indent, nil, "end tell")

	case script.NodeCase:
		w.emit(indent, n.BytecodeIndices, "case %s of", w.expr(ast, n.CaseValue))
		for _, labelRef := range n.Labels {
			label := ast.Arena.Node(labelRef)
			vals := make([]string, len(label.LabelValues))
			for k, v := range label.LabelValues {
				vals[k] = w.expr(ast, v)
			}
			w.emit(indent+1, label.BytecodeIndices, "%s:", strings.Join(vals, ", "))
			w.block(ast, label.LabelBody, indent+2)
		}
		if n.HasOtherwise {
			w.emit(indent+1, nil, "otherwise:")
			w.block(ast, n.OtherwiseBody, indent+2)
		}
		w.emit(indent, nil, "end case")

	case script.NodeExit:
		w.emit(indent, n.BytecodeIndices, "exit")
	case script.NodeExitRepeat:
		w.emit(indent, n.BytecodeIndices, "exit repeat")
	case script.NodeNextRepeat:
		w.emit(indent, n.BytecodeIndices, "next repeat")

	case script.NodeComment:
		w.emit(indent, n.BytecodeIndices, "-- %s", n.CommentText)

	case script.NodeAssignment:
		w.emit(indent, n.BytecodeIndices, "%s = %s", w.expr(ast, n.PropTarget), w.expr(ast, n.Value))

	case script.NodePut:
		w.emit(indent, n.BytecodeIndices, "put %s %s %s", w.expr(ast, n.PutValue), putKeyword(n.PutKind), w.expr(ast, n.PutDest))

	case script.NodeChunkDelete:
		w.emit(indent, n.BytecodeIndices, "delete %s", w.expr(ast, n.ChunkRef))
	case script.NodeChunkHilite:
		w.emit(indent, n.BytecodeIndices, "hilite %s", w.expr(ast, n.ChunkRef))

	default:
		// A bare expression statement (a call whose result is discarded).
		w.emit(indent, n.BytecodeIndices, "%s", w.expr(ast, ref))
	}
}

func putKeyword(k script.PutType) string {
	switch k {
	case script.PutAfter:
		return "after"
	case script.PutBefore:
		return "before"
	default:
		return "into"
	}
}

// expr renders ref as a source expression string.
func (w *writer) expr(ast *script.AST, ref script.NodeRef) string {
	if ref == script.NoRef {
		return ""
	}
	n := ast.Arena.Node(ref)
	switch n.Kind {
	case script.NodeLiteral:
		switch n.LiteralKind {
		case script.LiteralString:
			return fmt.Sprintf("%q", n.StrVal)
		case script.LiteralFloat:
			return fmt.Sprintf("%g", n.FloatVal)
		default:
			if len(n.Args) > 0 {
				parts := make([]string, len(n.Args))
				for i, a := range n.Args {
					parts[i] = w.expr(ast, a)
				}
				return "[" + strings.Join(parts, ", ") + "]"
			}
			return fmt.Sprintf("%d", n.IntVal)
		}
	case script.NodeVarRef:
		return w.varName(n.Scope, n.NameID)
	case script.NodeBinaryOp:
		return fmt.Sprintf("(%s %s %s)", w.expr(ast, n.Left), opSymbol(n.Op), w.expr(ast, n.Right))
	case script.NodeUnaryOp:
		return fmt.Sprintf("%s%s", unarySymbol(n.Op), w.expr(ast, n.Left))
	case script.NodeLocalCall, script.NodeExtCall, script.NodeTellCall, script.NodeNewObj:
		return fmt.Sprintf("%s(%s)", n.CallName, w.exprList(ast, n.Args))
	case script.NodeObjCall:
		return fmt.Sprintf("%s.%s(%s)", w.expr(ast, n.CallTarget), n.CallName, w.exprList(ast, n.Args))
	case script.NodeObjProp:
		if n.PropIndex != script.NoRef {
			return fmt.Sprintf("%s[%s]", w.expr(ast, n.PropTarget), w.expr(ast, n.PropIndex))
		}
		if n.PropTarget != script.NoRef {
			return fmt.Sprintf("%s.%s", w.expr(ast, n.PropTarget), n.PropName)
		}
		return n.PropName
	case script.NodeMember:
		if n.MemberCastID != script.NoRef {
			return fmt.Sprintf("%s(%s, %s)", n.MemberType, w.expr(ast, n.MemberID), w.expr(ast, n.MemberCastID))
		}
		return fmt.Sprintf("%s(%s)", n.MemberType, w.expr(ast, n.MemberID))
	case script.NodeChunkExpr:
		s := w.expr(ast, n.ChunkTarget)
		for i := len(n.ChunkBrackets) - 1; i >= 0; i-- {
			br := n.ChunkBrackets[i]
			s = fmt.Sprintf("%s %s to %s of %s", chunkKindName(br.Kind), w.expr(ast, br.First), w.expr(ast, br.Last), s)
		}
		return s
	case script.NodeTheProperty:
		return "the " + n.ThePropName
	default:
		return "?"
	}
}

func (w *writer) exprList(ast *script.AST, refs []script.NodeRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = w.expr(ast, r)
	}
	return strings.Join(parts, ", ")
}

func chunkKindName(k script.ChunkKind) string {
	switch k {
	case script.ChunkWord:
		return "word"
	case script.ChunkItem:
		return "item"
	case script.ChunkLine:
		return "line"
	default:
		return "char"
	}
}

func opSymbol(op script.Opcode) string {
	switch op {
	case script.OpAdd:
		return "+"
	case script.OpSub:
		return "-"
	case script.OpMul:
		return "*"
	case script.OpDiv:
		return "/"
	case script.OpMod:
		return "mod"
	case script.OpEq:
		return "="
	case script.OpNtEq:
		return "<>"
	case script.OpLt:
		return "<"
	case script.OpLtEq:
		return "<="
	case script.OpGt:
		return ">"
	case script.OpGtEq:
		return ">="
	case script.OpAnd:
		return "and"
	case script.OpOr:
		return "or"
	case script.OpJoinStr, script.OpJoinPadStr:
		return "&"
	case script.OpContainsStr, script.OpContains0Str:
		return "contains"
	default:
		return "?"
	}
}

func unarySymbol(op script.Opcode) string {
	if op == script.OpNot {
		return "not "
	}
	return "-"
}
