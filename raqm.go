// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

// Package raqm implements the core of a complex-text itemization and
// shaping pipeline: script resolution, bidi adaptation, run splitting,
// font selection, shaper driving and output assembly, wired around the
// go-text/typesetting HarfBuzz shaper. The API follows raqm.c's
// create/set_text/set_paragraph_direction/add_feature/set_font_range/
// layout/get_glyphs lifecycle (spec §6), translated into idiomatic Go.
package raqm

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/opentype/loader"
	gotextshaping "github.com/go-text/typesetting/shaping"

	"github.com/complextext/raqm/bidi"
	"github.com/complextext/raqm/shapedriver"
	"github.com/complextext/raqm/shaping"
)

// toUpstreamInput converts one of this repo's itemization-pipeline runs
// into the upstream go-text/typesetting/shaping.Input the real shaping
// backend (and shapedriver.Shaper) actually consumes. Every field matches
// by name and layout except Script: our Script Resolver (spec §4.1)
// produces this repo's own script.Script, a uint32 carrying the same
// ISO-15924-tag encoding as language.Script (script.ParseScript packs a
// tag the same way the teacher's language.ParseScript does), so a direct
// numeric conversion is exact, not a lossy approximation. FontFeatures is copied element-wise rather than
// reinterpreted in bulk: Go does not permit converting a slice of one
// named struct type to a slice of another, even when the two structs are
// field-for-field identical.
func toUpstreamInput(in shaping.Input) gotextshaping.Input {
	var feats []gotextshaping.FontFeature
	if len(in.FontFeatures) > 0 {
		feats = make([]gotextshaping.FontFeature, len(in.FontFeatures))
		for i, f := range in.FontFeatures {
			feats[i] = gotextshaping.FontFeature{Tag: f.Tag, Value: f.Value}
		}
	}
	return gotextshaping.Input{
		Text:         in.Text,
		RunStart:     in.RunStart,
		RunEnd:       in.RunEnd,
		Direction:    in.Direction,
		Face:         in.Face,
		FontFeatures: feats,
		Size:         in.Size,
		Script:       language.Script(in.Script),
		Language:     in.Language,
	}
}

// Direction is the caller's requested paragraph direction (spec §6). The
// numeric values match the spec's enum exactly and are part of the
// observable API.
type Direction uint8

const (
	Default Direction = iota
	LTR
	RTL
	TTB
)

func (d Direction) bidiBase() bidi.Direction {
	switch d {
	case LTR:
		return bidi.LTR
	case RTL:
		return bidi.RTL
	case TTB:
		return bidi.TTB
	default:
		return bidi.Default
	}
}

// Kind identifies a class of failure from §7's error taxonomy. It is not
// itself an error; Error wraps a Kind with the operation that produced it.
type Kind uint8

const (
	// InvalidContext: operation invoked on a nil context. Mutators on a
	// nil *Context are a silent no-op; queries return a zero value,
	// matching §7 rather than panicking.
	InvalidContext Kind = iota
	// EmptyParagraph: Layout called with zero-length text.
	EmptyParagraph
	// BidiResolutionFailed: the bidi engine could not resolve the
	// paragraph.
	BidiResolutionFailed
	// ShapingFailed: the shaping backend reported an error on some run.
	ShapingFailed
	// FeatureParseFailed: AddFeature was given an unparseable descriptor.
	FeatureParseFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidContext:
		return "invalid context"
	case EmptyParagraph:
		return "empty paragraph"
	case BidiResolutionFailed:
		return "bidi resolution failed"
	case ShapingFailed:
		return "shaping failed"
	case FeatureParseFailed:
		return "feature parse failed"
	default:
		return "unknown error"
	}
}

// Error reports a failure from the pipeline. Per §7, diagnostics beyond
// the Kind are not part of the contract; Error exists so Go callers get a
// real error value instead of a bare boolean, without promising more than
// the spec does.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return "raqm: " + e.Kind.String() }

func newError(k Kind) *Error { return &Error{Kind: k} }

// Glyph is one entry of a laid-out paragraph's flat glyph array (spec §4.6
// Output Assembler). Cluster is a scalar index unless the paragraph was
// obtained through [Context.Layout] after [Context.SetTextUTF8] or one of
// the byte-cluster convenience entries, in which case it is a byte index
// into the original UTF-8 string (spec §4.6's "optional cluster
// remapping").
type Glyph = shapedriver.Glyph

// fontRange is one `set_font_range` call, recorded in call order so later
// calls take precedence over earlier, overlapping ones (spec §9's
// resolution of the duplicate-assignment open question: idempotent,
// last-write-wins).
type fontRange struct {
	start, length int
	face          font.Face
}

// Context is the stateful object wrapping one paragraph's itemization and
// shaping pipeline (spec §3 Lifecycles, §6 create/set_text/.../destroy).
// It corresponds to raqm.c's raqm_t: a manually reference-counted shared
// handle (spec §9's design note permits this when sharing is wanted,
// rather than mandating an atomic-refcounted rewrite). The pipeline state
// itself — paragraph buffer, font assignments, glyph array — is a plain
// owned struct field set, not manually memory-managed.
type Context struct {
	refcount  int
	destroyed bool

	text      []rune
	direction Direction
	language  language.Language
	features  []shaping.FontFeature

	fontRanges []fontRange
	byteMode   bool // true if the text was supplied via a byte-cluster entry point

	glyphs  []Glyph
	laidOut bool

	seg shaping.Segmenter

	// shaper is the shaping backend (spec §1/§6's external collaborator).
	// Left nil in normal use, in which case Layout lazily uses
	// shapedriver.HarfbuzzShaper; tests in this package substitute a fake
	// to exercise the pipeline without real font data.
	shaper shapedriver.Shaper
}

// Create returns a new context with a reference count of 1 (spec §6
// create). The default paragraph direction is Default ("auto") and the
// default language is the execution environment's default, mirroring
// raqm.c's raqm_create initializing base_dir to RAQM_DIRECTION_DEFAULT.
func Create() *Context {
	return &Context{refcount: 1, language: language.DefaultLanguage()}
}

// Reference increments c's reference count (spec §6 reference). A nil
// receiver is a silent no-op, per §7 InvalidContext.
func (c *Context) Reference() {
	if c == nil || c.destroyed {
		return
	}
	c.refcount++
}

// Destroy decrements c's reference count, releasing the context's
// pipeline state once it reaches zero (spec §6 destroy). A nil receiver,
// or a context already at zero references, is a silent no-op.
func (c *Context) Destroy() {
	if c == nil || c.destroyed {
		return
	}
	c.refcount--
	if c.refcount > 0 {
		return
	}
	c.destroyed = true
	c.text = nil
	c.fontRanges = nil
	c.glyphs = nil
	c.features = nil
}

// SetText replaces c's paragraph with text, invalidating any previous
// layout (spec §6 set_text). Invalid scalars must already be replaced
// with U+FFFD by the caller, as for raqm_set_text. A nil or destroyed
// context silently does nothing.
func (c *Context) SetText(text []rune) {
	if c == nil || c.destroyed {
		return
	}
	c.text = text
	c.byteMode = false
	c.laidOut = false
	c.glyphs = nil
}

// SetTextUTF8 replaces c's paragraph by decoding a UTF-8 string to scalar
// values (spec §6's byte-oriented set_text variant, raqm_set_text_utf8),
// and marks the context so that [Context.Layout]'s glyph clusters are
// reported as byte offsets into that string rather than scalar indices
// (spec §4.6's optional cluster remapping, spec §3's Glyph record).
func (c *Context) SetTextUTF8(text string) {
	if c == nil || c.destroyed {
		return
	}
	c.text = []rune(text)
	c.byteMode = true
	c.laidOut = false
	c.glyphs = nil
}

// SetParagraphDirection stores the base direction used by bidi adaptation
// (spec §6 set_paragraph_direction). The default is Default. [bidi.Resolve]
// hands Default and LTR to the bidi engine identically, so the two resolve
// the same way; only RTL and TTB select a different base.
func (c *Context) SetParagraphDirection(d Direction) {
	if c == nil || c.destroyed {
		return
	}
	c.direction = d
	c.laidOut = false
}

// SetLanguage stores the language tag applied to every shape run (spec
// §4.5: "language (defaulted from the execution environment)").
func (c *Context) SetLanguage(lang language.Language) {
	if c == nil || c.destroyed {
		return
	}
	c.language = lang
	c.laidOut = false
}

// AddFeature parses a feature descriptor and appends it to c's feature
// list (spec §6 add_feature). Accepted forms, matching raqm.c's
// hb_feature_from_string convention and the same convention observed in
// the pack's own `ot.FeatureFromString`-style CLI option parsing:
// "tag" (enables, value 1), "tag=N" (sets value N), "+tag" (enables),
// "-tag" (disables, value 0). tag must be exactly 4 printable ASCII
// bytes. Returns false (FeatureParseFailed, no state change) if the
// descriptor cannot be parsed.
func (c *Context) AddFeature(descriptor string) bool {
	if c == nil || c.destroyed {
		return false
	}
	feat, ok := ParseFeature(descriptor)
	if !ok {
		return false
	}
	c.features = append(c.features, feat)
	c.laidOut = false
	return true
}

// ParseFeature parses a single OpenType feature descriptor in the form
// accepted by [Context.AddFeature]. It is exported separately so callers
// building a feature list can validate descriptors ahead of time.
func ParseFeature(descriptor string) (shaping.FontFeature, bool) {
	s := descriptor
	value := uint32(1)
	switch {
	case len(s) > 0 && s[0] == '+':
		s = s[1:]
	case len(s) > 0 && s[0] == '-':
		s = s[1:]
		value = 0
	default:
		if i := indexByte(s, '='); i >= 0 {
			tag, rest := s[:i], s[i+1:]
			n, ok := parseUint(rest)
			if !ok {
				return shaping.FontFeature{}, false
			}
			s, value = tag, n
		}
	}
	if len(s) != 4 {
		return shaping.FontFeature{}, false
	}
	for i := 0; i < 4; i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return shaping.FontFeature{}, false
		}
	}
	return shaping.FontFeature{Tag: loader.NewTag(s[0], s[1], s[2], s[3]), Value: value}, true
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func parseUint(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var n uint32
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + uint32(s[i]-'0')
	}
	return n, true
}

// SetFontRange assigns face to the scalars in [start, start+length) (spec
// §6 set_font_range, §4.4 Font Selector). Assignments whose start is
// beyond the paragraph are ignored; assignments whose start+length
// exceeds the paragraph length are truncated, per spec §4.4. Later calls
// take precedence over earlier ones on overlapping ranges (the duplicate-
// assignment idempotency resolved in DESIGN.md).
func (c *Context) SetFontRange(start, length int, face font.Face) {
	if c == nil || c.destroyed || start < 0 || length <= 0 || start >= len(c.text) {
		return
	}
	end := start + length
	if end > len(c.text) {
		end = len(c.text)
	}
	c.fontRanges = append(c.fontRanges, fontRange{start: start, length: end - start, face: face})
	c.laidOut = false
}

// Layout runs the full itemization and shaping pipeline (spec §4) and
// returns an error describing which stage failed, or nil on success.
// Calling Layout twice without intervening mutation yields byte-identical
// glyph arrays (spec §8 testable property 7): the second call is
// answered from the cached result without re-running the pipeline.
func (c *Context) Layout() error {
	if c == nil || c.destroyed {
		return newError(InvalidContext)
	}
	if c.laidOut {
		return nil
	}
	if len(c.text) == 0 {
		return newError(EmptyParagraph)
	}

	items, err := c.seg.SplitByBidiAndScriptAuto(c.text, c.direction.bidiBase())
	if err != nil {
		return newError(BidiResolutionFailed)
	}

	faces := c.resolveFaces()

	var runs []gotextshaping.Input
	for _, item := range items {
		item.FontFeatures = c.features
		item.Language = c.language
		for _, sub := range shaping.SplitByFontAssignment(item, faces) {
			runs = append(runs, toUpstreamInput(sub))
		}
	}

	shaper := c.shaper
	if shaper == nil {
		shaper = &shapedriver.HarfbuzzShaper{}
	}
	glyphs, err := shapedriver.Assemble(shaper, c.text, runs, c.byteMode)
	if err != nil {
		return newError(ShapingFailed)
	}

	c.glyphs = glyphs
	c.laidOut = true
	return nil
}

// resolveFaces builds the per-scalar face array consumed by
// [shaping.SplitByFontAssignment] from c's recorded set_font_range calls,
// applied in call order so later calls win on overlapping ranges.
// Positions never covered by any call are left nil, which
// [shapedriver.HarfbuzzShaper.Shape] reports as ShapingFailed — this
// context never silently shapes ungoverned text with an arbitrary face.
func (c *Context) resolveFaces() []font.Face {
	faces := make([]font.Face, len(c.text))
	for _, r := range c.fontRanges {
		for i := r.start; i < r.start+r.length; i++ {
			faces[i] = r.face
		}
	}
	return faces
}

// Glyphs returns the glyph array produced by the most recent successful
// [Context.Layout] call (spec §6 get_glyphs). The returned slice is
// borrowed: it is only valid until the next mutating call on c. A nil or
// destroyed context, or one that has not been successfully laid out,
// returns nil.
func (c *Context) Glyphs() []Glyph {
	if c == nil || c.destroyed || !c.laidOut {
		return nil
	}
	return c.glyphs
}

// ShapeRunes is the scalar-sequence convenience one-shot entry point (spec
// §6): it lays out text with a single face, direction and feature list and
// returns the resulting glyph array whose Cluster fields are scalar
// indices. Grounded on raqm.c's raqm_shape_u32.
func ShapeRunes(text []rune, face font.Face, dir Direction, features []string) ([]Glyph, error) {
	c := Create()
	defer c.Destroy()
	c.SetText(text)
	c.SetParagraphDirection(dir)
	for _, f := range features {
		if !c.AddFeature(f) {
			return nil, newError(FeatureParseFailed)
		}
	}
	c.SetFontRange(0, len(text), face)
	if err := c.Layout(); err != nil {
		return nil, err
	}
	return c.Glyphs(), nil
}

// ShapeString is the byte-oriented convenience one-shot entry point (spec
// §6): identical to [ShapeRunes], except text is supplied as a UTF-8
// string and the returned glyphs' Cluster fields are byte indices into it.
// Grounded on raqm.c's raqm_shape.
func ShapeString(text string, face font.Face, dir Direction, features []string) ([]Glyph, error) {
	c := Create()
	defer c.Destroy()
	c.SetTextUTF8(text)
	c.SetParagraphDirection(dir)
	for _, f := range features {
		if !c.AddFeature(f) {
			return nil, newError(FeatureParseFailed)
		}
	}
	c.SetFontRange(0, len(c.text), face)
	if err := c.Layout(); err != nil {
		return nil, err
	}
	return c.Glyphs(), nil
}
