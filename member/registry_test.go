package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/dirplayer/internal/diag"
)

// castChunk builds a synthetic CASt chunk: header (specific-len,
// info-len, type) followed by the two regions.
func castChunk(typeCode byte, specific, info []byte) []byte {
	out := make([]byte, 0, castHeaderSize+len(specific)+len(info))
	out = append(out, u32be(len(specific))...)
	out = append(out, u32be(len(info))...)
	out = append(out, typeCode)
	out = append(out, specific...)
	out = append(out, info...)
	return out
}

func u32be(v int) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func pascalName(name string) []byte {
	return append([]byte{byte(len(name))}, []byte(name)...)
}

func TestDecodeFieldMember(t *testing.T) {
	specific := []byte{0, 100, 0, 50, 1, 0, 2} // width, height, editable, wordWrap, border
	chunk := castChunk(byte(TypeField), specific, pascalName("myField"))

	var sink diag.Sink
	m := Decode(chunk, &sink)

	require.NotNil(t, m.Field)
	assert.Equal(t, "myField", m.Name)
	assert.Equal(t, 100, m.Field.Width)
	assert.Equal(t, 50, m.Field.Height)
	assert.True(t, m.Field.Editable)
	assert.False(t, m.Field.WordWrap)
	assert.Empty(t, sink.Entries)
}

func TestDecodeUnknownTypeFallsBackToUnrecognised(t *testing.T) {
	specific := []byte{1, 2, 3, 4}
	chunk := castChunk(99, specific, pascalName("mystery"))

	var sink diag.Sink
	m := Decode(chunk, &sink)

	assert.Equal(t, TypeUnknown, m.Type)
	assert.Equal(t, specific, m.Unrecognised)
	require.Len(t, sink.Entries, 1)
}

func TestDecodePaletteEntries(t *testing.T) {
	specific := []byte{255, 0, 0, 0, 255, 0, 0, 0, 255}
	chunk := castChunk(byte(TypePalette), specific, pascalName(""))

	m := Decode(chunk, &diag.Sink{})

	require.NotNil(t, m.Palette)
	require.Len(t, m.Palette.Entries, 3)
	assert.Equal(t, [3]byte{255, 0, 0}, m.Palette.Entries[0])
}

func TestDecodeTruncatedChunkRecordsDiagnostic(t *testing.T) {
	chunk := castChunk(byte(TypeBitmap), []byte{0, 1}, nil)

	var sink diag.Sink
	m := Decode(chunk, &sink)

	require.NotNil(t, m.Bitmap)
	assert.NotEmpty(t, sink.Entries)
}
