// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

// Package bidi adapts golang.org/x/text/unicode/bidi into the paragraph
// embedding-level resolution and visual-order run list described in spec
// §4.2, generalizing the teacher's (go-text/typesetting) own
// shaping.Segmenter.splitByBidi, which discarded the level array after
// producing runs.
package bidi

import (
	"errors"

	xbidi "golang.org/x/text/unicode/bidi"
)

// Direction is the paragraph base direction, matching the four values of
// the external Paragraph input API exactly (DEFAULT=0, LTR=1, RTL=2,
// TTB=3).
type Direction uint8

const (
	Default Direction = iota
	LTR
	RTL
	TTB
)

// Run is a maximal span of consecutive scalars at equal embedding level, in
// visual (left-to-right on the page) order.
type Run struct {
	Start, Length, Level int
}

// Result is the output of Resolve.
type Result struct {
	// ResolvedDirection is LTR or RTL: the direction of the first run in
	// Runs, or LTR for TTB and empty paragraphs.
	ResolvedDirection Direction
	// Levels has one entry per input scalar; for TTB paragraphs every
	// entry is 0.
	Levels []int
	// Runs is in visual order.
	Runs []Run
}

// ErrBidiResolutionFailed is returned when the bidi engine cannot resolve
// the paragraph (spec §4.2, §7 BidiResolutionFailed).
var ErrBidiResolutionFailed = errors.New("bidi: paragraph resolution failed")

// Resolve computes embedding levels and visual-order runs for text under
// the given base direction. Default and LTR are both handed to the bidi
// engine as a left-to-right default direction and resolve identically;
// RTL is handed over as a right-to-left default direction.
func Resolve(text []rune, base Direction) (Result, error) {
	if base == TTB || len(text) == 0 {
		levels := make([]int, len(text))
		var runs []Run
		if len(text) > 0 {
			runs = []Run{{Start: 0, Length: len(text), Level: 0}}
		}
		return Result{ResolvedDirection: LTR, Levels: levels, Runs: runs}, nil
	}

	def := xbidi.LeftToRight
	if base == RTL {
		def = xbidi.RightToLeft
	}

	var p xbidi.Paragraph
	p.SetString(string(text), xbidi.DefaultDirection(def))
	ordering, err := p.Order()
	if err != nil {
		return Result{}, ErrBidiResolutionFailed
	}

	numRuns := ordering.NumRuns()
	runs := make([]Run, 0, numRuns)
	levels := make([]int, len(text))
	resolved := LTR
	// Runs from Order() are already in visual order and cover the
	// paragraph contiguously in logical terms per run, but consecutive
	// runes in Go's []rune indexing and UTF-8 byte indexing returned by
	// Pos() coincide only because bidi.Paragraph was seeded with
	// string(text): both count Unicode scalar values here, never bytes,
	// since text has no multi-rune-per-byte ambiguity once converted to a
	// []rune-addressed string.
	runeStart := 0
	for i := 0; i < numRuns; i++ {
		run := ordering.Run(i)
		runeText := []rune(run.String())
		length := len(runeText)
		level := 0
		if run.Direction() == xbidi.RightToLeft {
			level = 1
		}
		if i == 0 {
			if level == 1 {
				resolved = RTL
			} else {
				resolved = LTR
			}
		}
		for j := 0; j < length; j++ {
			levels[runeStart+j] = level
		}
		runs = append(runs, Run{Start: runeStart, Length: length, Level: level})
		runeStart += length
	}

	return Result{ResolvedDirection: resolved, Levels: levels, Runs: runs}, nil
}
