// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

package raqm

import (
	"errors"
	"testing"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/opentype/api"
	oFont "github.com/go-text/typesetting/opentype/api/font"
	gotextshaping "github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// universalCmap covers every rune, enough to build a non-nil fake
// font.Face without real font data (same pattern as shaping's and
// fontscan's test fakes).
type universalCmap struct{ api.Cmap }

func (universalCmap) Lookup(r rune) (font.GID, bool) { return 0, true }

func fakeFace() font.Face {
	return &oFont.Face{Font: &oFont.Font{Cmap: universalCmap{}}}
}

// fakeShaper stands in for the real HarfBuzz backend: one glyph per rune
// in the run, clustered on its own scalar index. Exercises Assemble's
// concatenation and cluster-remap logic without real font data.
type fakeShaper struct{}

func (fakeShaper) Shape(input gotextshaping.Input) (gotextshaping.Output, error) {
	if input.Face == nil || input.RunStart >= input.RunEnd {
		return gotextshaping.Output{}, errors.New("fake shaper: invalid run")
	}
	var out gotextshaping.Output
	for i := input.RunStart; i < input.RunEnd; i++ {
		out.Glyphs = append(out.Glyphs, gotextshaping.Glyph{
			GlyphID:      font.GID(i + 1),
			ClusterIndex: i,
			XAdvance:     fixed.I(10),
		})
	}
	return out, nil
}

func newTestContext() *Context {
	c := Create()
	c.shaper = fakeShaper{}
	return c
}

// S1 — Pure LTR.
func TestLayoutPureLTR(t *testing.T) {
	c := newTestContext()
	text := []rune("abc")
	c.SetText(text)
	c.SetParagraphDirection(Default)
	c.SetFontRange(0, len(text), fakeFace())

	if err := c.Layout(); err != nil {
		t.Fatalf("Layout() = %v, want nil", err)
	}
	glyphs := c.Glyphs()
	if len(glyphs) != 3 {
		t.Fatalf("got %d glyphs, want 3", len(glyphs))
	}
	for i, g := range glyphs {
		if g.Cluster != i {
			t.Errorf("glyph %d cluster = %d, want %d", i, g.Cluster, i)
		}
	}
}

// S2 — Pure RTL.
func TestLayoutPureRTL(t *testing.T) {
	c := newTestContext()
	text := []rune("السلام")
	c.SetText(text)
	c.SetParagraphDirection(Default)
	c.SetFontRange(0, len(text), fakeFace())

	if err := c.Layout(); err != nil {
		t.Fatalf("Layout() = %v, want nil", err)
	}
	if got := len(c.Glyphs()); got != len(text) {
		t.Fatalf("got %d glyphs, want %d", got, len(text))
	}
}

// S3 — Mixed bidi: "abc" + Arabic + "xyz", base LTR. All scalars are
// covered and every position is shaped exactly once, regardless of how
// many shape runs the bidi+script split produces (property 1: coverage).
func TestLayoutMixedBidiCoversEveryScalar(t *testing.T) {
	c := newTestContext()
	text := []rune("abc" + "السل" + "xyz")
	c.SetText(text)
	c.SetParagraphDirection(LTR)
	c.SetFontRange(0, len(text), fakeFace())

	if err := c.Layout(); err != nil {
		t.Fatalf("Layout() = %v, want nil", err)
	}
	glyphs := c.Glyphs()
	if len(glyphs) != len(text) {
		t.Fatalf("got %d glyphs, want %d (one per scalar)", len(glyphs), len(text))
	}
	seen := make([]bool, len(text))
	for _, g := range glyphs {
		if g.Cluster < 0 || g.Cluster >= len(text) {
			t.Fatalf("glyph cluster %d out of range", g.Cluster)
		}
		if seen[g.Cluster] {
			t.Fatalf("cluster %d produced twice", g.Cluster)
		}
		seen[g.Cluster] = true
	}
}

// S5 — Vertical: TTB short-circuit.
func TestLayoutVertical(t *testing.T) {
	c := newTestContext()
	text := []rune("abc")
	c.SetText(text)
	c.SetParagraphDirection(TTB)
	c.SetFontRange(0, len(text), fakeFace())

	if err := c.Layout(); err != nil {
		t.Fatalf("Layout() = %v, want nil", err)
	}
	if got := len(c.Glyphs()); got != 3 {
		t.Fatalf("got %d glyphs, want 3", got)
	}
}

// S6 — Empty.
func TestLayoutEmptyParagraph(t *testing.T) {
	c := newTestContext()
	c.SetText(nil)

	err := c.Layout()
	if err == nil {
		t.Fatal("Layout() on empty text = nil, want EmptyParagraph")
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != EmptyParagraph {
		t.Errorf("Layout() error = %v, want Kind=EmptyParagraph", err)
	}
	if got := c.Glyphs(); got != nil {
		t.Errorf("Glyphs() after failed layout = %v, want nil", got)
	}
}

// Property 7 — idempotent layout.
func TestLayoutIdempotent(t *testing.T) {
	c := newTestContext()
	text := []rune("hello")
	c.SetText(text)
	c.SetFontRange(0, len(text), fakeFace())

	if err := c.Layout(); err != nil {
		t.Fatal(err)
	}
	first := append([]Glyph(nil), c.Glyphs()...)

	if err := c.Layout(); err != nil {
		t.Fatal(err)
	}
	second := c.Glyphs()

	if len(first) != len(second) {
		t.Fatalf("glyph count changed across idempotent Layout calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("glyph %d changed across idempotent Layout calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestLayoutUncoveredRangeFailsShaping(t *testing.T) {
	c := newTestContext()
	text := []rune("abc")
	c.SetText(text)
	// No SetFontRange call: every position is left uncovered (nil face).
	err := c.Layout()
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != ShapingFailed {
		t.Errorf("Layout() with no font assigned = %v, want Kind=ShapingFailed", err)
	}
}

func TestSetFontRangeTruncatesAndIgnoresOutOfBounds(t *testing.T) {
	c := newTestContext()
	text := []rune("hello")
	c.SetText(text)
	face := fakeFace()

	c.SetFontRange(3, 10, face) // truncated to [3,5)
	c.SetFontRange(100, 1, face) // start beyond paragraph: ignored

	faces := c.resolveFaces()
	for i := 0; i < 3; i++ {
		if faces[i] != nil {
			t.Errorf("position %d should be uncovered, got %v", i, faces[i])
		}
	}
	for i := 3; i < 5; i++ {
		if faces[i] != face {
			t.Errorf("position %d should be covered by the truncated range", i)
		}
	}
}

func TestSetFontRangeLastWriteWinsOnOverlap(t *testing.T) {
	c := newTestContext()
	text := []rune("hello")
	c.SetText(text)
	first := fakeFace()
	second := fakeFace()

	c.SetFontRange(0, 5, first)
	c.SetFontRange(2, 2, second)

	faces := c.resolveFaces()
	want := []font.Face{first, first, second, second, first}
	for i, w := range want {
		if faces[i] != w {
			t.Errorf("position %d face = %v, want %v", i, faces[i], w)
		}
	}
}

func TestParseFeature(t *testing.T) {
	tests := []struct {
		descriptor string
		wantOK     bool
		wantValue  uint32
	}{
		{"frac", true, 1},
		{"+frac", true, 1},
		{"-frac", true, 0},
		{"frac=3", true, 3},
		{"fr", false, 0},
		{"toolong", false, 0},
		{"frac=x", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		feat, ok := ParseFeature(tt.descriptor)
		if ok != tt.wantOK {
			t.Errorf("ParseFeature(%q) ok = %v, want %v", tt.descriptor, ok, tt.wantOK)
			continue
		}
		if ok && feat.Value != tt.wantValue {
			t.Errorf("ParseFeature(%q) value = %d, want %d", tt.descriptor, feat.Value, tt.wantValue)
		}
	}
}

func TestAddFeatureRejectsInvalidDescriptor(t *testing.T) {
	c := newTestContext()
	c.SetText([]rune("abc"))
	if c.AddFeature("nope-too-long") {
		t.Error("AddFeature accepted an invalid descriptor")
	}
	if len(c.features) != 0 {
		t.Error("AddFeature should not mutate state on failure")
	}
	if !c.AddFeature("kern") {
		t.Error("AddFeature rejected a valid descriptor")
	}
	if len(c.features) != 1 {
		t.Error("AddFeature should append on success")
	}
}

func TestContextLifecycleRefcounting(t *testing.T) {
	c := Create()
	c.Reference()
	c.Destroy() // refcount 2 -> 1, still alive
	if c.destroyed {
		t.Fatal("context destroyed too early")
	}
	c.Destroy() // refcount 1 -> 0, now freed
	if !c.destroyed {
		t.Fatal("context should be destroyed once refcount reaches 0")
	}
	// Further operations on a destroyed context are silent no-ops.
	c.SetText([]rune("abc"))
	if c.text != nil {
		t.Error("SetText should no-op on a destroyed context")
	}
	if err := c.Layout(); err == nil {
		t.Error("Layout on a destroyed context should fail")
	}
}

func TestContextNilReceiverIsSafe(t *testing.T) {
	var c *Context
	c.Reference()
	c.Destroy()
	c.SetText([]rune("abc"))
	c.SetParagraphDirection(RTL)
	if c.AddFeature("kern") {
		t.Error("AddFeature on a nil context should fail")
	}
	if err := c.Layout(); err == nil {
		t.Error("Layout on a nil context should fail")
	}
	if got := c.Glyphs(); got != nil {
		t.Error("Glyphs on a nil context should return nil")
	}
}

func TestShapeRunesRejectsInvalidFeature(t *testing.T) {
	_, err := ShapeRunes([]rune("abc"), fakeFace(), Default, []string{"toolongtag"})
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != FeatureParseFailed {
		t.Errorf("ShapeRunes with an invalid feature = %v, want Kind=FeatureParseFailed", err)
	}
}

func TestShapeStringRejectsInvalidFeature(t *testing.T) {
	_, err := ShapeString("abc", fakeFace(), Default, []string{"toolongtag"})
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Kind != FeatureParseFailed {
		t.Errorf("ShapeString with an invalid feature = %v, want Kind=FeatureParseFailed", err)
	}
}
