package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChunk(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".bin"), data, 0o644))
}

func TestRunErrorsOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, run(dir))
}

func TestRunSucceedsWithOneRecognisedChunk(t *testing.T) {
	dir := t.TempDir()
	// A CASt chunk with a zero-length specific/info region and an
	// unrecognised type code is enough to exercise the member path
	// without needing a fully valid record.
	writeChunk(t, dir, "CASt", []byte{0, 0, 0, 0, 0, 0, 0, 0, 99})
	assert.NoError(t, run(dir))
}

func TestReadChunkMissingFileReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	_, ok := readChunk(dir, "VWSC")
	assert.False(t, ok)
}

func TestIndentBuildsTwoSpacesPerLevel(t *testing.T) {
	assert.Equal(t, "", indent(0))
	assert.Equal(t, "    ", indent(2))
}
