// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

package bidi

import "testing"

func TestResolvePureRTL(t *testing.T) {
	// spec S2: pure Arabic paragraph, default direction.
	text := []rune{0x0627, 0x0644, 0x0633, 0x0644, 0x0627, 0x0645}
	got, err := Resolve(text, Default)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResolvedDirection != RTL {
		t.Fatalf("resolved direction = %v, want RTL", got.ResolvedDirection)
	}
	if len(got.Runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(got.Runs))
	}
	if got.Runs[0].Level != 1 {
		t.Fatalf("run level = %d, want 1 (odd/RTL)", got.Runs[0].Level)
	}
	for i, lvl := range got.Levels {
		if lvl != 1 {
			t.Fatalf("position %d: level %d, want 1", i, lvl)
		}
	}
}

func TestResolveMixedLTRBase(t *testing.T) {
	// spec S3: Latin text containing an embedded Arabic span, LTR base.
	text := []rune("abc " + string([]rune{0x0627, 0x0644}) + " xyz")
	got, err := Resolve(text, LTR)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResolvedDirection != LTR {
		t.Fatalf("resolved direction = %v, want LTR", got.ResolvedDirection)
	}
	if len(got.Runs) < 2 {
		t.Fatalf("got %d runs, want at least 2 for mixed-direction text", len(got.Runs))
	}
	sawRTL := false
	for _, r := range got.Runs {
		if r.Level%2 == 1 {
			sawRTL = true
		}
	}
	if !sawRTL {
		t.Fatal("expected at least one RTL run for the embedded Arabic span")
	}
}

func TestResolveTTBForcesAllZeroLevelsSingleRun(t *testing.T) {
	// spec S5: TTB short-circuits bidi resolution entirely.
	text := []rune("abc" + string([]rune{0x0627, 0x0644}))
	got, err := Resolve(text, TTB)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Runs) != 1 {
		t.Fatalf("got %d runs, want exactly 1 for TTB", len(got.Runs))
	}
	if got.Runs[0].Start != 0 || got.Runs[0].Length != len(text) {
		t.Fatalf("run = %+v, want to span the whole paragraph", got.Runs[0])
	}
	for i, lvl := range got.Levels {
		if lvl != 0 {
			t.Fatalf("position %d: level %d, want 0 for TTB", i, lvl)
		}
	}
}

func TestResolveEmptyText(t *testing.T) {
	got, err := Resolve(nil, Default)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Runs) != 0 {
		t.Fatalf("got %d runs for empty text, want 0", len(got.Runs))
	}
	if len(got.Levels) != 0 {
		t.Fatalf("got %d levels for empty text, want 0", len(got.Levels))
	}
}

func TestResolveRunsCoverParagraphContiguously(t *testing.T) {
	text := []rune("abc " + string([]rune{0x0627, 0x0644, 0x0633}) + " xyz")
	got, err := Resolve(text, Default)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, r := range got.Runs {
		if r.Start != total {
			t.Fatalf("run %+v does not start where the previous one ended (expected %d)", r, total)
		}
		total += r.Length
	}
	if total != len(text) {
		t.Fatalf("runs cover %d runes, want %d", total, len(text))
	}
}
