// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package sketches_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coatyio/dda-examples/dataset/sketches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	s := sketches.Sum{}
	assert.Equal(t, 0, s.Zero())
	assert.Equal(t, 5, s.Create(5))
	assert.Equal(t, 9, s.Add(4, 5))
	assert.Equal(t, "sum", s.OpName())
}

func TestWordFrequencySketchCountsAndMerges(t *testing.T) {
	s := sketches.WordFrequencySketch{}
	a := s.Create("The quick, brown fox.")
	b := s.Create("the Fox jumps.")
	merged := s.Add(a, b)
	assert.Equal(t, 2, merged["the"])
	assert.Equal(t, 2, merged["fox"])
	assert.Equal(t, 1, merged["quick"])
	assert.Equal(t, 1, merged["jumps"])
}

func TestLoadCorpusParagraphsSplitsOnBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("first paragraph\nstill first\n\nsecond paragraph\n"), 0o644))

	paragraphs, err := sketches.LoadCorpusParagraphs([]string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	require.Len(t, paragraphs, 2)
	assert.Contains(t, paragraphs[0], "first paragraph")
	assert.Contains(t, paragraphs[1], "second paragraph")
}

func TestLoadCorpusParagraphsNoMatches(t *testing.T) {
	_, err := sketches.LoadCorpusParagraphs([]string{"/no/such/dir/*.txt"})
	assert.Error(t, err)
}
