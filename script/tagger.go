package script

// TagKind annotates one bytecode index with its role in a loop, as
// produced by Tag (spec.md §4.6, GLOSSARY "Tag").
type TagKind int

const (
	TagNone TagKind = iota
	// TagSkip marks an instruction that is pure loop scaffolding and
	// must not be translated into a node of its own.
	TagSkip
	// TagNextRepeatTarget marks the instruction a `next repeat` jump
	// resolves to.
	TagNextRepeatTarget
)

// LoopKind distinguishes the three repeat variants spec.md §4.6
// recognises from a JmpIfZ's surrounding instruction pattern.
type LoopKind int

const (
	LoopWhile LoopKind = iota
	LoopTo             // with-to / with-downto
	LoopIn             // with-in
)

// LoopInfo records one recognised loop: its kind and the bytecode
// index of the JmpIfZ that heads it (used to associate a Jmp/NextRepeat
// instruction with its nearest enclosing loop during translation).
type LoopInfo struct {
	Kind      LoopKind
	HeadIndex int
	EndIndex  int // index one past EndRepeat
	// VarIndex is the bytecode index of the SetLocal instruction that
	// names the loop variable (with-to/downto's increment, with-in's
	// per-item assignment), or -1 for a plain while loop. Mirrors the
	// original decompiler's get_var_name_from_set lookup.
	VarIndex int
}

// Tags is the per-index tagger output: a parallel array of TagKind values
// plus, for every tagged index, the index of the loop head that owns
// it (spec.md §4.6 step 4, "each tagged instruction records the owning
// loop's start index").
type Tags struct {
	Tag     []TagKind
	Owner   []int // bytecode index of the owning JmpIfZ, or -1
	Loops   map[int]LoopInfo // keyed by JmpIfZ index
}

// Tag scans code for JmpIfZ instructions that head a loop and tags
// their prologue/epilogue scaffolding, per spec.md §4.6.
func Tag(code []Instruction) Tags {
	t := Tags{
		Tag:   make([]TagKind, len(code)),
		Owner: make([]int, len(code)),
		Loops: map[int]LoopInfo{},
	}
	for i := range t.Owner {
		t.Owner[i] = -1
	}

	posIndex := indexByPos(code)

	for i, instr := range code {
		if instr.Opcode != OpJmpIfZ {
			continue
		}
		targetPos := instr.Pos + int(instr.Operand)
		endIndex, ok := posIndex[targetPos]
		if !ok || endIndex <= 0 || code[endIndex-1].Opcode != OpEndRepeat {
			continue
		}
		if endRepeat := code[endIndex-1]; endRepeat.Pos-int(endRepeat.Operand) > instr.Pos {
			// EndRepeat (which jumps back by its operand) must land at
			// or before the JmpIfZ position (spec.md §4.6 step 1,
			// "loop-back").
			continue
		}

		kind := classifyLoop(code, i, endIndex)
		info := LoopInfo{Kind: kind, HeadIndex: i, EndIndex: endIndex, VarIndex: -1}

		switch kind {
		case LoopIn:
			tagRange(&t, i-7, i, info.HeadIndex)
			tagRange(&t, i+1, i+1+len(withInPost), info.HeadIndex)
			tagRange(&t, endIndex-3, endIndex+1, info.HeadIndex)
			t.Tag[endIndex-3] = TagNextRepeatTarget
			// withInPost's last element is the Set* naming the item
			// variable (get_var_name_from_set's indexing in the original
			// decompiler).
			info.VarIndex = i + len(withInPost)
		case LoopTo:
			if i-1 >= 0 {
				t.Tag[i-1] = TagSkip
				t.Owner[i-1] = info.HeadIndex
			}
			if i-2 >= 0 {
				t.Tag[i-2] = TagSkip
				t.Owner[i-2] = info.HeadIndex
			}
			t.Tag[endIndex-5] = TagNextRepeatTarget
			t.Owner[endIndex-5] = info.HeadIndex
			tagRange(&t, endIndex-4, endIndex, info.HeadIndex)
			// withToTail's SetLocal (the increment) names the counter.
			info.VarIndex = endIndex - 2
		case LoopWhile:
			t.Tag[endIndex-1] = TagNextRepeatTarget
			t.Owner[endIndex-1] = info.HeadIndex
		}
		t.Loops[i] = info
	}

	return t
}

func indexByPos(code []Instruction) map[int]int {
	m := make(map[int]int, len(code))
	for i, instr := range code {
		m[instr.Pos] = i
	}
	return m
}

func tagRange(t *Tags, from, to, owner int) {
	for i := from; i < to; i++ {
		if i < 0 || i >= len(t.Tag) {
			continue
		}
		t.Tag[i] = TagSkip
		t.Owner[i] = owner
	}
}

// classifyLoop decides which of the three loop shapes JmpIfZ at index
// i (with epilogue at endIndex) matches, per spec.md §4.6 step 2.
func classifyLoop(code []Instruction, i, endIndex int) LoopKind {
	if matchesWithIn(code, i, endIndex) {
		return LoopIn
	}
	if matchesWithTo(code, i, endIndex) {
		return LoopTo
	}
	return LoopWhile
}

// withInPre/withInPost are the exact opcode patterns spec.md §4.6
// requires surrounding a with-in loop's JmpIfZ.
var withInPre = []Opcode{OpPeek, OpPushArgList, OpExtCall, OpPushInt8, OpPeek, OpPeek, OpLtEq}
var withInPost = []Opcode{OpPeek, OpPeek, OpPushArgList, OpExtCall, OpSetLocal}
var withInTail = []Opcode{OpPushInt8, OpAdd, OpPop}

func matchesWithIn(code []Instruction, i, endIndex int) bool {
	if i-len(withInPre) < 0 {
		return false
	}
	if !matchOps(code, i-len(withInPre), withInPre) {
		return false
	}
	if !matchOps(code, i+1, withInPost) {
		return false
	}
	// Tail: PushInt8, Add just before the EndRepeat at endIndex-1, then
	// Pop right after it at endIndex.
	return matchOps(code, endIndex-3, withInTail[:2]) && matchOps(code, endIndex, withInTail[2:])
}

var withToTail = []Opcode{OpPushInt8, OpGetLocal, OpAdd, OpSetLocal, OpEndRepeat}

func matchesWithTo(code []Instruction, i, endIndex int) bool {
	if i-1 < 0 || code[i-1].Opcode != OpLtEq && code[i-1].Opcode != OpGtEq {
		return false
	}
	tailStart := endIndex - len(withToTail)
	if tailStart < 0 {
		return false
	}
	return matchOps(code, tailStart, withToTail)
}

func matchOps(code []Instruction, start int, ops []Opcode) bool {
	if start < 0 || start+len(ops) > len(code) {
		return false
	}
	for j, op := range ops {
		if code[start+j].Opcode != op {
			return false
		}
	}
	return true
}
