// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

// Package shapedriver drives the external shaping backend over each run
// produced by the itemization pipeline and assembles the shaped runs into a
// single glyph sequence (spec §4.5 Shaper Driver, §4.6 Output Assembler).
//
// The backend itself — HarfBuzz, via go-text/typesetting/shaping — is the
// external collaborator spec §1/§6 places outside this core; this package
// only adapts it and stitches its per-run output back together.
package shapedriver

import (
	"errors"

	"github.com/go-text/typesetting/shaping"
)

// Shaper is the external shaping collaborator described in spec §6: given a
// fully resolved run (text, direction, script, language, face, features),
// it returns shaped glyphs or fails.
type Shaper interface {
	Shape(input shaping.Input) (shaping.Output, error)
}

// ErrShapingFailed is returned when the backend cannot shape a run (spec §7
// ShapingFailed).
var ErrShapingFailed = errors.New("shapedriver: shaping backend failed")

// HarfbuzzShaper adapts github.com/go-text/typesetting/shaping.HarfbuzzShaper,
// the real upstream HarfBuzz-based shaper, to the Shaper interface. Grounded
// on the construction/usage pattern in multiple pack consumers (e.g. a PDF
// glyph-shaping helper and a Skia text-shaping adapter), both of which build
// a shaping.Input and read back Output.Glyphs[i].{GlyphID, ClusterIndex,
// XAdvance, YAdvance, XOffset, YOffset}.
type HarfbuzzShaper struct {
	hb shaping.HarfbuzzShaper
}

// Shape implements Shaper. go-text/typesetting's HarfbuzzShaper.Shape does
// not itself return an error (HarfBuzz degrades to .notdef glyphs instead of
// failing outright); ShapingFailed is reserved for the case of an input run
// HarfBuzz cannot process at all: a nil face or an empty or inverted run
// range (RunStart >= RunEnd).
func (h *HarfbuzzShaper) Shape(input shaping.Input) (shaping.Output, error) {
	if input.Face == nil || input.RunStart >= input.RunEnd {
		return shaping.Output{}, ErrShapingFailed
	}
	return h.hb.Shape(input), nil
}

// Glyph is one shaped glyph, matching raqm's public glyph record
// (raqm_glyph_t). Cluster is a scalar (rune) index into the paragraph text
// unless Assemble was called with remapToBytes, in which case it is a byte
// offset into the original UTF-8 text.
type Glyph struct {
	GlyphID  uint32
	Cluster  int
	XAdvance int32
	YAdvance int32
	XOffset  int32
	YOffset  int32
}

// Assemble shapes every input run in order and concatenates the resulting
// glyphs into one sequence (spec §4.6). Grounded on raqm.c's
// raqm_get_glyphs concatenation loop. Cluster remapping from a scalar
// (rune) index to a UTF-8 byte offset is optional (spec §4.6, §3's Glyph
// record): remapToBytes should be true only when the caller originally
// supplied text in a byte-oriented transformation format (raqm's
// byte-cluster entry points), and false for the plain scalar-sequence
// entry points, which report clusters as scalar indices. The byte-remap
// prefix-sum is grounded on the Skia shaper adapter's runeToByte
// construction.
func Assemble(shaper Shaper, text []rune, runs []shaping.Input, remapToBytes bool) ([]Glyph, error) {
	var runeToByte []int
	if remapToBytes {
		runeToByte = byteOffsets(text)
	}

	var out []Glyph
	for _, run := range runs {
		output, err := shaper.Shape(run)
		if err != nil {
			return nil, err
		}
		for _, g := range output.Glyphs {
			cluster := g.ClusterIndex
			if remapToBytes {
				if cluster < len(runeToByte) {
					cluster = runeToByte[cluster]
				} else {
					cluster = runeToByte[len(runeToByte)-1]
				}
			}
			out = append(out, Glyph{
				GlyphID:  uint32(g.GlyphID),
				Cluster:  cluster,
				XAdvance: int32(g.XAdvance),
				YAdvance: int32(g.YAdvance),
				XOffset:  int32(g.XOffset),
				YOffset:  int32(g.YOffset),
			})
		}
	}
	return out, nil
}

// byteOffsets returns, for every scalar index in text (plus one sentinel
// past the end), the UTF-8 byte offset at which that scalar starts.
func byteOffsets(text []rune) []int {
	offsets := make([]int, len(text)+1)
	off := 0
	for i, r := range text {
		offsets[i] = off
		off += len(string(r))
	}
	offsets[len(text)] = off
	return offsets
}
