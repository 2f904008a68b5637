// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package sketches

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rivo/uniseg"

	"github.com/coatyio/dda-examples/dataset/contract"
)

// WordFrequency counts occurrences of words, normalized to lowercase.
type WordFrequency map[string]int

// WordFrequencySketch is a Sketch[string, WordFrequency] over paragraphs of
// UTF-8 text: T is one paragraph, Create counts the words in it, and Add
// merges two frequency tables. Grounded on registry/wf.go's
// computeParagraphFrequency/Accumulate pair, narrowed from its
// Partition-Compute-Accumulate shape down to spec.md's Sketch contract —
// partitioning a corpus into paragraphs is now the caller's job
// (LoadCorpusParagraphs), since building the DataSet tree is outside a
// Sketch's contract.
type WordFrequencySketch struct{}

func (WordFrequencySketch) Zero() WordFrequency { return make(WordFrequency) }

func (WordFrequencySketch) Create(paragraph string) WordFrequency {
	return countWords(paragraph)
}

func (WordFrequencySketch) Add(a, b WordFrequency) WordFrequency {
	out := make(WordFrequency, len(a)+len(b))
	for w, c := range a {
		out[w] += c
	}
	for w, c := range b {
		out[w] += c
	}
	return out
}

func (WordFrequencySketch) OpName() string            { return "wordfreq" }
func (WordFrequencySketch) OpParams() ([]byte, error) { return nil, nil }

func countWords(paragraph string) WordFrequency {
	ignoreWord := func(w []byte) bool {
		for len(w) > 0 {
			r, size := utf8.DecodeRune(w)
			if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsControl(r) {
				w = w[size:]
				continue
			}
			return false
		}
		return true
	}

	f := make(WordFrequency)
	state := -1
	var wd []byte
	b := []byte(paragraph)
	for len(b) > 0 {
		wd, b, state = uniseg.FirstWord(b, state)
		if ignoreWord(wd) {
			continue // skip a word consisting of only punctuation, space, or control characters
		}
		f[strings.ToLower(string(wd))]++
	}
	return f
}

// LoadCorpusParagraphs globs the given patterns (?, *, **, [], {}) for UTF-8
// text files and splits each matched file into paragraphs separated by blank
// lines, the unit WordFrequencySketch expects as its T. One call site for
// this is building Local(paragraph) leaves under a Parallel dataset before
// running WordFrequencySketch over it.
func LoadCorpusParagraphs(globs []string) ([]string, error) {
	if len(globs) == 0 {
		return nil, fmt.Errorf("sketches: specify at least one file glob pattern (?, *, **, [], {})")
	}
	var paragraphs []string
	for _, glob := range globs {
		matches, err := doublestar.FilepathGlob(glob)
		if err != nil {
			return nil, fmt.Errorf("sketches: bad file glob pattern %q: %w", glob, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("sketches: no matches for file glob pattern %q", glob)
		}
		for _, path := range matches {
			ps, err := splitParagraphs(path)
			if err != nil {
				return nil, err
			}
			paragraphs = append(paragraphs, ps...)
		}
	}
	return paragraphs, nil
}

func splitParagraphs(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("sketches: opening %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var paragraphs []string
	var buf strings.Builder
	eop := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if eop {
				continue
			}
			eop = true
			paragraphs = append(paragraphs, buf.String())
			buf.Reset()
			continue
		}
		eop = false
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if buf.Len() != 0 {
		paragraphs = append(paragraphs, buf.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sketches: reading %s: %w", path, err)
	}
	return paragraphs, nil
}

var (
	_ contract.Sketch[string, WordFrequency] = WordFrequencySketch{}
	_ contract.Nameable                      = WordFrequencySketch{}
)
