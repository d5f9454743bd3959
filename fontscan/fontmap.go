// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

// Package fontscan provides a minimal face registry satisfying
// shaping.Fontmap, used by the Font Selector (spec §4.4) when callers want
// more than a single fixed face. Font-resource acquisition itself (parsing
// font files, scanning system font directories) is an excluded
// collaborator (spec §1); this package only picks among already-loaded
// faces.
package fontscan

import (
	"log"

	"github.com/go-text/typesetting/font"

	"github.com/complextext/raqm/script"
)

// Logger is a type that can log warnings, matching the teacher's own
// non-fatal-error reporting convention throughout fontscan.
type Logger interface {
	Printf(format string, args ...interface{})
}

// entry pairs a registered face with the script it was registered for.
type entry struct {
	face    font.Face
	family  string
	scripts map[script.Script]bool
}

// FontMap is a minimal registry satisfying shaping.Fontmap: a caller
// registers faces under a family name and optional script coverage, and
// ResolveFace picks the first registered face covering a rune, falling
// back to the first ever registered face (shaping.Fontmap.ResolveFace must
// always return a valid face per its own contract).
//
// This keeps the teacher's Logger-based non-fatal-error reporting and its
// family/script-substitution intent, trimmed of the on-disk system-font
// index (scanning, footprints, caching) that this spec places outside the
// core (§1: font-resource acquisition from a font-file library is an
// excluded collaborator).
type FontMap struct {
	logger  Logger
	entries []entry
}

// NewFontMap returns an empty font map. If logger is nil, log.Default() is used.
func NewFontMap(logger Logger) *FontMap {
	if logger == nil {
		logger = log.Default()
	}
	return &FontMap{logger: logger}
}

// Register adds face to the map under family, associated with the given
// scripts. Scripts are consulted only by ResolveFaceForScript; ResolveFace
// selects by rune coverage (via font.Face.NominalGlyph) alone.
func (fm *FontMap) Register(family string, face font.Face, scripts ...script.Script) {
	set := make(map[script.Script]bool, len(scripts))
	for _, s := range scripts {
		set[s] = true
	}
	fm.entries = append(fm.entries, entry{face: face, family: family, scripts: set})
}

// ResolveFace implements shaping.Fontmap: it returns the first registered
// face whose NominalGlyph covers r, falling back to the first registered
// face. An empty FontMap returns nil; callers must register at least one
// face before shaping.
func (fm *FontMap) ResolveFace(r rune) font.Face {
	for _, e := range fm.entries {
		if _, ok := e.face.NominalGlyph(r); ok {
			return e.face
		}
	}
	if len(fm.entries) == 0 {
		return nil
	}
	fm.logger.Printf("no registered face covers rune %U (%c); falling back to the first registered face", r, r)
	return fm.entries[0].face
}

// ResolveFaceForScript returns the first face registered for script sc, or
// nil. Useful for callers implementing their own fallback chain on top of
// ResolveFace's rune-coverage-only search.
func (fm *FontMap) ResolveFaceForScript(sc script.Script) font.Face {
	for _, e := range fm.entries {
		if e.scripts[sc] {
			return e.face
		}
	}
	return nil
}

// FaceByFamily returns the first face registered under family, or nil.
func (fm *FontMap) FaceByFamily(family string) font.Face {
	for _, e := range fm.entries {
		if e.family == family {
			return e.face
		}
	}
	return nil
}
