// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

// Command itemize is a small harness over the raqm pipeline: it splits a
// paragraph into bidi/script runs (spec §4.1-§4.3) and, when a font file is
// given, shapes the whole paragraph with it and prints the resulting glyphs
// (spec §4.4-§4.6). It exists to exercise the library from the command
// line, the way caire's cmd/caire exercises its resize pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"

	raqm "github.com/complextext/raqm"
	"github.com/complextext/raqm/bidi"
	"github.com/complextext/raqm/shaping"
)

func main() {
	var (
		text     = flag.String("text", "", "paragraph to itemize (UTF-8, required)")
		dir      = flag.String("dir", "auto", "paragraph direction: auto, ltr, rtl or ttb")
		fontPath = flag.String("font", "", "path to a TTF/OTF file; when set the paragraph is also shaped")
		feats    = flag.String("features", "", "comma-separated OpenType feature descriptors, e.g. kern,+liga,-clig")
	)
	flag.Parse()

	if *text == "" {
		fmt.Fprintln(os.Stderr, "itemize: -text is required")
		os.Exit(2)
	}

	rdir, err := parseDirection(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "itemize:", err)
		os.Exit(2)
	}

	runes := []rune(*text)
	var seg shaping.Segmenter
	items, err := seg.SplitByBidiAndScriptAuto(runes, toBidiBase(rdir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "itemize: itemization failed:", err)
		os.Exit(1)
	}

	for i, item := range items {
		fmt.Printf("run %d: [%d:%d) script=%s direction=%s\n",
			i, item.RunStart, item.RunEnd, item.Script, directionLabel(item.Direction))
	}

	if *fontPath == "" {
		return
	}

	face, err := loadFace(*fontPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "itemize:", err)
		os.Exit(1)
	}

	c := raqm.Create()
	defer c.Destroy()
	c.SetText(runes)
	c.SetParagraphDirection(rdir)
	c.SetFontRange(0, len(runes), face)
	for _, descriptor := range splitFeatures(*feats) {
		if !c.AddFeature(descriptor) {
			fmt.Fprintf(os.Stderr, "itemize: invalid feature descriptor %q\n", descriptor)
			os.Exit(2)
		}
	}

	if err := c.Layout(); err != nil {
		fmt.Fprintln(os.Stderr, "itemize: layout failed:", err)
		os.Exit(1)
	}

	for i, g := range c.Glyphs() {
		fmt.Printf("glyph %d: gid=%d cluster=%d x_advance=%d\n", i, g.GlyphID, g.Cluster, g.XAdvance)
	}
}

func parseDirection(s string) (raqm.Direction, error) {
	switch s {
	case "auto", "":
		return raqm.Default, nil
	case "ltr":
		return raqm.LTR, nil
	case "rtl":
		return raqm.RTL, nil
	case "ttb":
		return raqm.TTB, nil
	default:
		return raqm.Default, fmt.Errorf("unknown -dir %q, want auto, ltr, rtl or ttb", s)
	}
}

// toBidiBase mirrors raqm.Direction.bidiBase (unexported, so duplicated here
// rather than reached into): the CLI runs the same itemization preview the
// library runs internally before handing the paragraph to Layout.
func toBidiBase(d raqm.Direction) bidi.Direction {
	switch d {
	case raqm.LTR:
		return bidi.LTR
	case raqm.RTL:
		return bidi.RTL
	case raqm.TTB:
		return bidi.TTB
	default:
		return bidi.Default
	}
}

func directionLabel(d di.Direction) string {
	switch d {
	case di.DirectionRTL:
		return "rtl"
	case di.DirectionTTB:
		return "ttb"
	default:
		return "ltr"
	}
}

func splitFeatures(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func loadFace(path string) (font.Face, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	face, err := font.ParseTTF(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return face, nil
}
