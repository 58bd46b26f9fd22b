// Package dirplayer implements the core of a runtime that loads and
// replays compiled multimedia presentations authored in a legacy
// hypermedia authoring system.
//
// The compiled file is a RIFF-like container of typed chunks
// describing casts (libraries of media resources), scores (timelines
// of sprite placements with per-frame deltas), scripts (a stack-based
// bytecode for an untyped scripting language), and rich-text and font
// resources. This module consumes already-extracted chunk byte slices
// and exposes structured data; the container/RIFF reader, the bitmap
// decompressor, network/file I/O, the renderer, the Lingo interpreter,
// and the host bridge are all external collaborators.
//
// Four subsystems make up the core, one package each:
//
//   - score: two-pass frame expansion (carry-forward + delta) and the
//     sprite-span/behavior analyser.
//   - script: the bytecode tagger and single-pass translator that
//     recover a structured AST from a stack-based opcode stream, plus
//     script/writer's source renderer and tokenizer.
//   - font: the scalable-font parser, Bézier-flattening/scanline
//     rasteriser, and grid-atlas assembler.
//   - richtext: the styled-text chunk decoder (text, runs, styles,
//     paragraphs, fonts) and span synthesis.
//
// member dispatches parsed CASt chunks to typed cast-member
// constructors; cmd/castdump is a small demo CLI over all four.
package dirplayer
