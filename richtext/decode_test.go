package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexHeader(key, count, typ, declared int) []byte {
	return []byte(sprintfHex(key, count, typ, declared))
}

func sprintfHex(key, count, typ, declared int) string {
	return padHex(key, 4) + padHex(count, 8) + padHex(typ, 4) + padHex(declared, 4)
}

func padHex(v, width int) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = digits[v&0xF]
		v >>= 4
	}
	return string(out)
}

func TestDecodeOnlyTextSectionYieldsOneSpan(t *testing.T) {
	text := []byte("hi,hello\x03")
	section := append(hexHeader(0x0002, len(text), 0, 0), text...)

	doc := Decode(section, nil)
	require.Len(t, doc.Spans, 1)
	assert.Equal(t, "hello", doc.PlainText)
	assert.Equal(t, "hello", doc.Spans[0].Text)
}

func TestDecodeStopsAtNonHexHeader(t *testing.T) {
	data := append(hexHeader(0x0002, 3, 0, 0), []byte(",ab")...)
	data = append(data, []byte("GARBAGE-NOT-HEX-AT-ALL")...)

	doc := Decode(data, nil)
	assert.Equal(t, "ab", doc.PlainText)
}

func TestMaterializeSpansNoRunsDefaultStyle(t *testing.T) {
	spans := MaterializeSpans("plain text", nil, nil)
	require.Len(t, spans, 1)
	assert.Equal(t, "plain text", spans[0].Text)
	assert.Equal(t, defaultStyle.FontSize, spans[0].Style.FontSize)
}

func TestMergeRunsPrefersFirstOnDuplicatePosition(t *testing.T) {
	runs4 := []CharRun{{Position: 0, StyleIdx: 1}}
	runs5 := []CharRun{{Position: 0, StyleIdx: 2}, {Position: 3, StyleIdx: 3}}

	merged := mergeRuns(runs4, runs5)
	require.Len(t, merged, 2)
	assert.Equal(t, 1, merged[0].StyleIdx, "0x0004 must win on a duplicate position")
	assert.Equal(t, 3, merged[1].Position)
}

func TestDecodeAlignmentFromParagraphSection(t *testing.T) {
	payload := make([]byte, 37)
	payload[36] = 0x32 // right, per spec.md §8 scenario 6
	assert.Equal(t, AlignRight, decodeAlignment(payload[36]))
}
