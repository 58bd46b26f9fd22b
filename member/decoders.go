package member

import (
	"github.com/deepteams/dirplayer/internal/binreader"
	"github.com/deepteams/dirplayer/internal/diag"
)

// record forwards to sink.Record, tolerating a nil sink so callers
// that don't care about diagnostics (tests, one-off tools) can pass
// nil, matching the richtext/font packages' convention.
func record(sink *diag.Sink, section, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Record(section, format, args...)
}

func decodeField(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	f := &FieldMember{
		Width:    int(r.U16()),
		Height:   int(r.U16()),
		Editable: r.U8() != 0,
		WordWrap: r.U8() != 0,
		Border:   int(r.U8()),
	}
	if r.Err() != nil {
		record(sink, "member.field", "field specific-data truncated")
	}
	return &Member{Field: f}
}

func decodeText(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	t := &TextMember{
		Width:   int(r.U16()),
		Height:  int(r.U16()),
		BoxType: int(r.U8()),
	}
	if r.Err() != nil {
		record(sink, "member.text", "text specific-data truncated")
	}
	return &Member{Text: t}
}

func decodeButton(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	b := &ButtonMember{
		Width:      int(r.U16()),
		Height:     int(r.U16()),
		ButtonType: int(r.U8()),
	}
	if r.Err() != nil {
		record(sink, "member.button", "button specific-data truncated")
	}
	return &Member{Button: b}
}

func decodeBitmap(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	b := &BitmapMember{
		Width:    int(r.U16()),
		Height:   int(r.U16()),
		BitDepth: int(r.U8()),
		Palette:  Ref{CastLib: r.U16(), CastMember: r.U16()},
	}
	if r.Err() != nil {
		record(sink, "member.bitmap", "bitmap specific-data truncated")
	}
	return &Member{Bitmap: b}
}

func decodeScript(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	s := &ScriptMember{ScriptType: int(r.U16())}
	if r.Err() != nil {
		record(sink, "member.script", "script specific-data truncated")
	}
	return &Member{Script: s}
}

func decodeShape(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	s := &ShapeMember{
		ShapeType: int(r.U8()),
		Width:     int(r.U16()),
		Height:    int(r.U16()),
		Filled:    r.U8() != 0,
		LineSize:  int(r.U8()),
	}
	if r.Err() != nil {
		record(sink, "member.shape", "shape specific-data truncated")
	}
	return &Member{Shape: s}
}

func decodeVectorShape(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	v := &VectorShapeMember{
		Width:  int(r.U16()),
		Height: int(r.U16()),
		Closed: r.U8() != 0,
	}
	count := int(r.U16())
	const maxPoints = 100000
	if count > maxPoints {
		record(sink, "member.vectorShape", "point count %d exceeds sanity limit, truncating", count)
		count = maxPoints
	}
	for i := 0; i < count; i++ {
		if r.Err() != nil {
			break
		}
		v.Points = append(v.Points, [2]int16{r.I16(), r.I16()})
	}
	if r.Err() != nil {
		record(sink, "member.vectorShape", "point list truncated at %d of %d points", len(v.Points), count)
	}
	return &Member{VectorShape: v}
}

func decodeFilmLoop(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	f := &FilmLoopMember{
		Width:   int(r.U16()),
		Height:  int(r.U16()),
		Looping: r.U8() != 0,
	}
	if r.Err() != nil {
		record(sink, "member.filmLoop", "film loop specific-data truncated")
	}
	return &Member{FilmLoop: f}
}

func decodeSound(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	s := &SoundMember{
		Looping: r.U8() != 0,
		Stereo:  r.U8() != 0,
	}
	if r.Err() != nil {
		record(sink, "member.sound", "sound specific-data truncated")
	}
	return &Member{Sound: s}
}

func decodePalette(data []byte, sink *diag.Sink) *Member {
	const entrySize = 3
	p := &PaletteMember{}
	for off := 0; off+entrySize <= len(data); off += entrySize {
		p.Entries = append(p.Entries, [3]byte{data[off], data[off+1], data[off+2]})
	}
	if len(data)%entrySize != 0 {
		record(sink, "member.palette", "palette data length %d not a multiple of %d, trailing bytes dropped", len(data), entrySize)
	}
	return &Member{Palette: p}
}

func decodeFont(data []byte, sink *diag.Sink) *Member {
	r := binreader.New(data, binreader.BigEndian)
	size := int(r.U16())
	nameLen := int(r.U8())
	name := string(r.Bytes(nameLen))
	if r.Err() != nil {
		record(sink, "member.font", "font specific-data truncated")
	}
	return &Member{Font: &FontMember{FontName: name, Size: size}}
}
