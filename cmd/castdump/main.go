// Command castdump prints summaries of the chunk types this module
// decodes, given a directory of already-extracted chunk files.
//
// Usage:
//
//	castdump <chunk-dir>
//
// The container/RIFF reader is out of scope for this module (spec.md
// §1(a)): castdump expects the caller to have already split a source
// file into one file per chunk, named "<fourcc>.bin" (e.g.
// "VWSC.bin", "Lscr.bin", "STXT.bin", "CASt.bin"). Unrecognised or
// missing files are skipped, not an error, so a directory holding only
// one or two chunk types still produces a partial report.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepteams/dirplayer/font"
	"github.com/deepteams/dirplayer/internal/binreader"
	"github.com/deepteams/dirplayer/internal/diag"
	"github.com/deepteams/dirplayer/member"
	"github.com/deepteams/dirplayer/richtext"
	"github.com/deepteams/dirplayer/score"
	"github.com/deepteams/dirplayer/script"
	"github.com/deepteams/dirplayer/script/writer"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "castdump: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  castdump <chunk-dir>

Reads <chunk-dir>/<fourcc>.bin files (VWSC, Lscr, STXT, CASt, font) and
prints a one-section-per-chunk summary of each to stdout.
`)
}

func run(dir string) error {
	found := false
	if b, ok := readChunk(dir, "VWSC"); ok {
		found = true
		dumpScore(b)
	}
	if b, ok := readChunk(dir, "Lscr"); ok {
		found = true
		dumpScript(b)
	}
	if b, ok := readChunk(dir, "STXT"); ok {
		found = true
		dumpText(b)
	}
	if b, ok := readChunk(dir, "CASt"); ok {
		found = true
		dumpMember(b)
	}
	if b, ok := readChunk(dir, "font"); ok {
		found = true
		dumpFont(b)
	}
	if !found {
		return fmt.Errorf("no recognised chunk files in %s", dir)
	}
	return nil
}

func readChunk(dir, name string) ([]byte, bool) {
	b, err := os.ReadFile(filepath.Join(dir, name+".bin"))
	if err != nil {
		return nil, false
	}
	return b, true
}

// defaultScoreVersion is used when the directory version (spec.md §6
// "Container endianness... and directory version") isn't available,
// as it isn't in this demo CLI's plain chunk-file input: the caller of
// a real container reader would supply it instead.
const defaultScoreVersion = 8

func dumpScore(data []byte) {
	var sink diag.Sink
	layout := score.LayoutFor(defaultScoreVersion)
	r := binreader.New(data, binreader.BigEndian)
	header := score.ReadHeader(r, defaultScoreVersion)
	matrix, err := score.Expand(data[r.Pos():], header, layout, &sink)
	if err != nil {
		fmt.Printf("score: %v\n", err)
		return
	}
	fmt.Printf("score: %d frames, layout=%d, channels=%d\n", len(matrix.Frames), matrix.Layout, header.ChannelCount)
	for i := range matrix.Frames {
		fd := matrix.Detail(i)
		if len(fd.Sprites) == 0 && fd.Tempo == nil {
			continue
		}
		fmt.Printf("  frame %d: %d sprite(s)\n", i, len(fd.Sprites))
	}
	reportDiagnostics("score", sink)
}

func dumpScript(data []byte) {
	h, names, err := script.DecodeHandler(data)
	if err != nil {
		fmt.Printf("script: %v\n", err)
		return
	}
	var sink diag.Sink
	ast := script.Translate(h, names, &sink)
	rendered := writer.Render(ast, h, names)
	fmt.Printf("script: %d bytecode instructions, %d source lines\n", len(h.Bytecode), len(rendered.Lines))
	for _, line := range rendered.Lines {
		fmt.Printf("  %s%s\n", indent(line.Indent), line.Text)
	}
	reportDiagnostics("script", sink)
}

func indent(n int) string {
	out := make([]byte, n*2)
	for i := range out {
		out[i] = ' '
	}
	return string(out)
}

func dumpText(data []byte) {
	var sink diag.Sink
	doc := richtext.Decode(data, &sink)
	fmt.Printf("text: %q, %d span(s), alignment=%v\n", doc.PlainText, len(doc.Spans), doc.Alignment)
	for _, sp := range doc.Spans {
		fmt.Printf("  [%d,%d) size=%d %q\n", sp.Start, sp.End, sp.Style.FontSize, sp.Text)
	}
	reportDiagnostics("text", sink)
}

func dumpMember(data []byte) {
	var sink diag.Sink
	m := member.Decode(data, &sink)
	fmt.Printf("member: type=%s name=%q\n", m.Type, m.Name)
	reportDiagnostics("member", sink)
}

func dumpFont(data []byte) {
	var sink diag.Sink
	pf := font.Parse(data, &sink)
	fmt.Printf("font: %d glyph(s), ascender=%d, descender=%d\n", len(pf.Glyphs), pf.Physical.Ascender, pf.Physical.Descender)
	reportDiagnostics("font", sink)
}

func reportDiagnostics(section string, sink diag.Sink) {
	for _, e := range sink.Entries {
		fmt.Printf("  [%s] %s: %s\n", section, e.Section, e.Message)
	}
}
