// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

package shaping

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/harfbuzz"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/opentype/loader"
	"golang.org/x/image/math/fixed"

	"github.com/complextext/raqm/bidi"
	"github.com/complextext/raqm/script"
)

type Input struct {
	// Text is the body of text being shaped. Only the range Text[RunStart:RunEnd] is considered
	// for shaping, with the rest provided as context for the shaper. This helps with, for example,
	// cross-run Arabic shaping or handling combining marks at the start of a run.
	Text []rune
	// RunStart and RunEnd indicate the subslice of Text being shaped.
	RunStart, RunEnd int
	// Direction is the directionality of the text.
	Direction di.Direction
	// Face is the font face to render the text in.
	Face font.Face

	// FontFeatures activates or deactivates optional features
	// provided by the font.
	// The settings are applied to the whole [Text].
	FontFeatures []FontFeature

	// Size is the requested size of the font.
	// More generally, it is a scale factor applied to the resulting metrics.
	// For instance, given a device resolution (in dpi) and a point size (like 14), the `Size` to
	// get result in pixels is given by : pointSize * dpi / 72
	Size fixed.Int26_6

	// Script is the writing system resolved for this run (spec §4.1).
	Script script.Script

	// Language is an identifier for the language of the text.
	Language language.Language
}

// FontFeature sets one font feature.
//
// A font feature is an optionnal behavior a font might expose,
// identified by a 4 bytes [Tag].
// Most features are disabled by default; setting a non zero [Value]
// enables it.
//
// An exemple of font feature is the replacement of fractions (like 1/2, 3/4)
// by specialized glyphs, which would be activated by using
//
//	FontFeature{Tag: loader.MustNewTag("frac"), Value: 1}
//
// See also https://learn.microsoft.com/en-us/typography/opentype/spec/featurelist
// and https://developer.mozilla.org/en-US/docs/Web/CSS/CSS_fonts/OpenType_fonts_guide
type FontFeature struct {
	Tag   loader.Tag
	Value uint32
}

// Fontmap provides a general mechanism to select
// a face to use when shaping text.
type Fontmap interface {
	// ResolveFace is called by `SplitByFace` for each input rune potentially
	// triggering a face change.
	// It must always return a valid (non nil) font.Face value.
	ResolveFace(r rune) font.Face
}

var _ Fontmap = fixedFontmap(nil)

type fixedFontmap []font.Face

// ResolveFace panics if the slice is empty
func (ff fixedFontmap) ResolveFace(r rune) font.Face {
	for _, f := range ff {
		if _, has := f.NominalGlyph(r); has {
			return f
		}
	}
	return ff[0]
}

// SplitByFontGlyphs split the runes from 'input' to several items, sharing the same
// characteristics as 'input', expected for the `Face` which is set to
// the first font among 'availableFonts' providing support for all the runes
// in the item.
// Runes supported by no fonts are mapped to the first element of 'availableFonts', which
// must not be empty.
// The 'Face' field of 'input' is ignored: only 'availableFaces' are consulted.
// Rune coverage is obtained by calling the NominalGlyph() method of each font.
// See also SplitByFace for a more general approach of font selection.
func SplitByFontGlyphs(input Input, availableFaces []font.Face) []Input {
	return SplitByFace(input, fixedFontmap(availableFaces))
}

// SplitByFace split the runes from 'input' to several items, sharing the same
// characteristics as 'input', expected for the `Face` which is set to
// the return value of the `Fontmap.ResolveFace` call.
// The 'Face' field of 'input' is ignored: only 'availableFaces' is used to select the face.
func SplitByFace(input Input, availableFaces Fontmap) []Input {
	var splitInputs []Input
	currentInput := input
	currentInput.Face = nil
	for i := input.RunStart; i < input.RunEnd; i++ {
		r := input.Text[i]
		if currentInput.Face != nil && ignoreFaceChange(r) {
			// add the rune to the current input
			continue
		}

		// select the first font supporting r
		selectedFace := availableFaces.ResolveFace(r)

		if currentInput.Face == selectedFace {
			// add the rune to the current input
			continue
		}

		// new face needed

		if i != input.RunStart {
			// close the current input ...
			currentInput.RunEnd = i
			// ... add it to the output ...
			splitInputs = append(splitInputs, currentInput)
		}

		// ... and create a new one
		currentInput = input
		currentInput.RunStart = i
		currentInput.Face = selectedFace
	}

	// close and add the last input
	currentInput.RunEnd = input.RunEnd
	splitInputs = append(splitInputs, currentInput)
	return splitInputs
}

// SplitByFontAssignment splits input wherever the per-scalar font
// assignment in faces (indexed by absolute position in input.Text, i.e.
// faces[input.RunStart:input.RunEnd] is consulted) changes. This is the
// position-based Font Selector of spec §4.4's "per-range mode" — the
// caller assigns fonts to scalar ranges directly, rather than relying on
// [SplitByFace]'s rune-coverage fallback search. faces must have at least
// input.RunEnd elements and every position in [input.RunStart, input.RunEnd)
// must already carry a non-nil face.
func SplitByFontAssignment(input Input, faces []font.Face) []Input {
	if input.RunStart >= input.RunEnd {
		return nil
	}
	var out []Input
	start := input.RunStart
	for i := input.RunStart + 1; i < input.RunEnd; i++ {
		if faces[i] != faces[start] {
			sub := input
			sub.RunStart = start
			sub.RunEnd = i
			sub.Face = faces[start]
			out = append(out, sub)
			start = i
		}
	}
	sub := input
	sub.RunStart = start
	sub.RunEnd = input.RunEnd
	sub.Face = faces[start]
	out = append(out, sub)
	return out
}

// ignoreFaceChange returns `true` is the given rune should not trigger
// a change of font.
//
// We don't want space characters to affect font selection; in general,
// it's always wrong to select a font just to render a space.
// We assume that all fonts have the ASCII space, and for other space
// characters if they don't, HarfBuzz will compatibility-decompose them
// to ASCII space...
//
// We don't want to change fonts for line or paragraph separators.
//
// Finaly, we also don't change fonts for what Harfbuzz consider
// as ignorable (however, some Control Format runes like 06DD are not ignored).
//
// The rationale is taken from pango : see bugs
// https://bugzilla.gnome.org/show_bug.cgi?id=355987
// https://bugzilla.gnome.org/show_bug.cgi?id=701652
// https://bugzilla.gnome.org/show_bug.cgi?id=781123
// for more details.
func ignoreFaceChange(r rune) bool {
	return unicode.Is(unicode.Cc, r) || // control
		unicode.Is(unicode.Cs, r) || // surrogate
		unicode.Is(unicode.Zl, r) || // line separator
		unicode.Is(unicode.Zp, r) || // paragraph separator
		(unicode.Is(unicode.Zs, r) && r != '\u1680') || // space separator != OGHAM SPACE MARK
		harfbuzz.IsDefaultIgnorable(r)
}

// Segmenter holds a state used to split input
// according to three caracteristics : text direction (bidi),
// script, and face.
//
// The bidi and script passes are delegated to the dedicated [bidi] and
// [script] packages (spec §4.2, §4.1); Segmenter only drives the pipeline
// and owns the intermediate buffers.
type Segmenter struct {
	// pools of inputs, used to reduce allocations,
	// which are alternatively considered as input/output of the segmentation
	buffer1, buffer2 []Input
}

// Split segments the given [text] according to :
//   - text direction
//   - script
//   - face, as defined by [faces]
//
// As a consequence, the following fields of the returned runs are set :
//   - Text, RunStart, RunEnd
//   - Direction
//   - Script
//   - Face
//
// [defaultDirection] is used during bidi ordering, and should refer to the general
// context [text] is used in (typically the user system preference for GUI apps.)
//
// The returned slice is owned by the [Segmenter] and is only valid until
// the next call to [Split]. An error is returned if the bidi engine cannot
// resolve the paragraph (spec §7 BidiResolutionFailed).
func (seg *Segmenter) Split(text []rune, faces Fontmap, defaultDirection di.Direction) ([]Input, error) {
	items, err := seg.SplitByBidiAndScript(text, defaultDirection)
	if err != nil {
		return nil, err
	}
	seg.buffer1 = seg.buffer1[:0]
	for _, item := range items {
		seg.splitItemByFace(item, faces)
	}
	return seg.buffer1, nil
}

// SplitByBidiAndScript runs only the first two pipeline stages (bidi
// adaptation, then script resolution), leaving Face unset on every
// returned run. Callers that assign fonts by explicit scalar ranges
// rather than by glyph-coverage fallback (spec §4.4's position-based
// "per-range mode", as opposed to [Segmenter.Split]'s coverage-based
// [Fontmap]) use this to obtain script/direction-homogeneous runs and
// then split them further themselves, e.g. with [SplitByFontAssignment].
//
// The returned slice is owned by the [Segmenter] and is only valid until
// the next call to [Split] or [SplitByBidiAndScript].
func (seg *Segmenter) SplitByBidiAndScript(text []rune, defaultDirection di.Direction) ([]Input, error) {
	seg.reset()
	if err := seg.splitByBidi(text, defaultDirection); err != nil {
		return nil, err
	}
	seg.splitByScript()
	return seg.buffer2, nil
}

func (seg *Segmenter) reset() {
	// zero the slices to avoid 'memory leak' on pointer slice fields
	for i := range seg.buffer1 {
		seg.buffer1[i].Text = nil
		seg.buffer1[i].FontFeatures = nil
	}
	for i := range seg.buffer2 {
		seg.buffer2[i].Text = nil
		seg.buffer2[i].FontFeatures = nil
	}
	seg.buffer1 = seg.buffer1[:0]
	seg.buffer2 = seg.buffer2[:0]
}

// bidiBase translates the caller's axis/progression direction into the
// [bidi] package's base-direction enum. A vertical axis short-circuits to
// bidi.TTB, matching the teacher's own `defaultDirection.Axis() !=
// di.Horizontal` early return.
func bidiBase(d di.Direction) bidi.Direction {
	if d.Axis() != di.Horizontal {
		return bidi.TTB
	}
	if d.Progression() == di.TowardTopLeft {
		return bidi.RTL
	}
	return bidi.LTR
}

// fills buffer1 with bidi runs, delegating embedding-level resolution to
// the bidi package (spec §4.2).
func (seg *Segmenter) splitByBidi(text []rune, defaultDirection di.Direction) error {
	return seg.splitByBidiBase(text, bidiBase(defaultDirection), defaultDirection)
}

// splitByBidiBase is the shared implementation behind splitByBidi (which
// derives base from a caller-chosen di.Direction, always a concrete LTR/RTL/
// vertical axis) and SplitByBidiAndScriptAuto (which accepts the [bidi]
// package's own base enum directly, including bidi.Default — the true "auto"
// paragraph-direction detection of spec §6's set_paragraph_direction, which
// di.Direction has no representation for).
func (seg *Segmenter) splitByBidiBase(text []rune, base bidi.Direction, fallback di.Direction) error {
	if len(text) == 0 {
		return nil
	}
	result, err := bidi.Resolve(text, base)
	if err != nil {
		return err
	}
	for _, run := range result.Runs {
		dir := fallback
		if base != bidi.TTB {
			if run.Level%2 == 1 {
				dir = di.DirectionRTL
			} else {
				dir = di.DirectionLTR
			}
		}
		seg.buffer1 = append(seg.buffer1, Input{
			Text:      text,
			RunStart:  run.Start,
			RunEnd:    run.Start + run.Length,
			Direction: dir,
		})
	}
	return nil
}

// SplitByBidiAndScriptAuto is [Segmenter.SplitByBidiAndScript]'s counterpart
// for true "auto" base-direction detection (spec §6: set_paragraph_direction
// default): base is a [bidi.Direction], so bidi.Default is accepted directly
// instead of requiring the caller to already know LTR or RTL.
func (seg *Segmenter) SplitByBidiAndScriptAuto(text []rune, base bidi.Direction) ([]Input, error) {
	seg.reset()
	fallback := di.DirectionLTR
	if base == bidi.TTB {
		fallback = di.DirectionTTB
	}
	if err := seg.splitByBidiBase(text, base, fallback); err != nil {
		return nil, err
	}
	seg.splitByScript()
	return seg.buffer2, nil
}

// uses buffer1 as input and fills buffer2, splitting each bidi run into
// script-homogeneous sub-runs (spec §4.3 Run Splitter). Script continuity
// (Common/Inherited propagation, paired brackets) is resolved once over the
// whole paragraph so that context carries across bidi run boundaries, then
// sliced per run.
func (seg *Segmenter) splitByScript() {
	if len(seg.buffer1) == 0 {
		return
	}
	text := seg.buffer1[0].Text
	scripts := script.Resolve(text)

	for _, run := range seg.buffer1 {
		if run.RunStart >= run.RunEnd {
			continue
		}
		if run.Direction.Progression() == di.TowardTopLeft {
			seg.splitRunByScriptBackward(run, scripts)
		} else {
			seg.splitRunByScriptForward(run, scripts)
		}
	}
}

// splitRunByScriptForward walks a run left-to-right in logical order,
// closing a sub-run whenever the script changes. Sub-runs are appended in
// strictly increasing RunStart order.
func (seg *Segmenter) splitRunByScriptForward(run Input, scripts []script.Script) {
	start := run.RunStart
	for i := run.RunStart + 1; i < run.RunEnd; i++ {
		if scripts[i] != scripts[start] {
			seg.emitScriptRun(run, start, i, scripts[start])
			start = i
		}
	}
	seg.emitScriptRun(run, start, run.RunEnd, scripts[start])
}

// splitRunByScriptBackward walks a run from its logical end backward,
// emitting finished sub-runs as it goes. This produces sub-runs in
// strictly decreasing RunStart order, matching the visual reading order of
// an RTL bidi run (spec §4.3, §8 testable property 2).
func (seg *Segmenter) splitRunByScriptBackward(run Input, scripts []script.Script) {
	end := run.RunEnd
	for i := run.RunEnd - 2; i >= run.RunStart; i-- {
		if scripts[i] != scripts[end-1] {
			seg.emitScriptRun(run, i+1, end, scripts[end-1])
			end = i + 1
		}
	}
	seg.emitScriptRun(run, run.RunStart, end, scripts[end-1])
}

func (seg *Segmenter) emitScriptRun(base Input, start, end int, sc script.Script) {
	if start >= end {
		return
	}
	out := base
	out.RunStart = start
	out.RunEnd = end
	out.Script = sc
	seg.buffer2 = append(seg.buffer2, out)
}

// splitItemByFace applies the same per-rune face-coverage walk as the
// standalone SplitByFace, but preserves the Direction/Script/Language
// already resolved for item instead of discarding them.
func (seg *Segmenter) splitItemByFace(item Input, faces Fontmap) {
	if item.RunStart >= item.RunEnd {
		return
	}
	currentInput := item
	currentInput.Face = nil
	for i := item.RunStart; i < item.RunEnd; i++ {
		r := item.Text[i]
		if currentInput.Face != nil && ignoreFaceChange(r) {
			continue
		}

		selectedFace := faces.ResolveFace(r)

		if currentInput.Face == selectedFace {
			continue
		}

		if i != item.RunStart {
			currentInput.RunEnd = i
			seg.buffer1 = append(seg.buffer1, currentInput)
		}

		currentInput = item
		currentInput.RunStart = i
		currentInput.Face = selectedFace
	}

	currentInput.RunEnd = item.RunEnd
	seg.buffer1 = append(seg.buffer1, currentInput)
}
