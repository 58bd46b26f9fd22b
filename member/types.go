// Package member implements the cast-member materialiser (spec.md §2
// row 11): it dispatches a parsed `CASt` chunk to a typed constructor
// keyed by the member's type code, producing one of the typed Member
// variants downstream code (the renderer, the Lingo interpreter) works
// with directly instead of a raw byte blob.
package member

import "github.com/deepteams/dirplayer/internal/diag"

// Type is the cast member's type code, read from the byte that follows
// the two u32 region lengths at the start of a CASt chunk (spec.md §6:
// "CASt cast member").
type Type int

const (
	TypeField Type = iota + 1
	TypeBitmap
	TypeFilmLoop
	TypeText
	TypeScript
	TypeShape
	TypeButton
	TypeVectorShape
	TypeSound
	TypePalette
	TypeFont
	TypeUnknown
)

func (t Type) String() string {
	switch t {
	case TypeField:
		return "field"
	case TypeBitmap:
		return "bitmap"
	case TypeFilmLoop:
		return "filmLoop"
	case TypeText:
		return "text"
	case TypeScript:
		return "script"
	case TypeShape:
		return "shape"
	case TypeButton:
		return "button"
	case TypeVectorShape:
		return "vectorShape"
	case TypeSound:
		return "sound"
	case TypePalette:
		return "palette"
	case TypeFont:
		return "font"
	default:
		return "unknown"
	}
}

// Ref identifies a cast member by library and member id, matching the
// score package's CastLib/CastMember fields (score/frame.go).
type Ref struct {
	CastLib    uint16
	CastMember uint16
}

// Member is a materialised cast member: the common header fields plus
// a type-specific payload in exactly one of the pointer fields below.
// A flat struct-of-optional-pointers mirrors the AST arena's
// union-by-convention shape (script/ast.go) rather than an interface,
// so callers can type-switch on Type without an extra assertion.
type Member struct {
	Type Type
	Name string

	Field       *FieldMember
	Text        *TextMember
	Button      *ButtonMember
	Bitmap      *BitmapMember
	Script      *ScriptMember
	Palette     *PaletteMember
	Shape       *ShapeMember
	VectorShape *VectorShapeMember
	FilmLoop    *FilmLoopMember
	Sound       *SoundMember
	Font        *FontMember

	// Unrecognised holds the raw specific-data payload when Type did
	// not match a known constructor (spec.md §7: recoverable, not
	// fatal).
	Unrecognised []byte
}

// FieldMember is an editable text field (spec.md §3 glossary "field").
type FieldMember struct {
	Width, Height int
	Editable      bool
	WordWrap      bool
	Border        int
}

// TextMember is a styled-text cast member. It holds only the geometry
// the CASt chunk carries; the styled text itself lives in a sibling
// STXT/XMED chunk decoded separately by richtext.Decode.
type TextMember struct {
	Width, Height int
	BoxType       int
}

// ButtonMember is a checkbox/radio/pushbutton (spec.md §3 glossary).
type ButtonMember struct {
	Width, Height int
	ButtonType    int
}

// BitmapMember references external bitmap data; the pixels themselves
// are decoded by the out-of-scope bitmap decompressor (spec.md §1(b)).
type BitmapMember struct {
	Width, Height int
	BitDepth      int
	Palette       Ref
}

// ScriptMember is a compiled Lingo handler set. It holds only the
// script type; the bytecode lives in the sibling Lscr/Lctx chunks,
// decoded separately by the script package.
type ScriptMember struct {
	ScriptType int
}

// PaletteMember is a colour lookup table with one RGB entry per three
// bytes of specific data.
type PaletteMember struct {
	Entries [][3]byte
}

// ShapeMember is a vector primitive (rect/oval/line) rendered without
// an outline path.
type ShapeMember struct {
	ShapeType     int
	Width, Height int
	Filled        bool
	LineSize      int
}

// VectorShapeMember is an outlined vector shape with an explicit point
// list (distinct from ShapeMember's fixed primitives).
type VectorShapeMember struct {
	Width, Height int
	Closed        bool
	Points        [][2]int16
}

// FilmLoopMember groups a nested score/sprite list played as a single
// member.
type FilmLoopMember struct {
	Width, Height int
	Looping       bool
}

// SoundMember references external sound sample data (spec.md §1(b):
// audio synthesis itself is a non-goal; only the reference is kept).
type SoundMember struct {
	Looping bool
	Stereo  bool
}

// FontMember references a scalable or bitmap font resource parsed by
// the font package.
type FontMember struct {
	FontName string
	Size     int
}

// decoder builds one member's specific payload from a CASt chunk's
// specific-data region. sink receives recoverable diagnostics rather
// than aborting.
type decoder func(data []byte, sink *diag.Sink) *Member
