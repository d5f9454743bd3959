// SPDX-License-Identifier: Unlicense OR BSD-3-Clause

package script

import (
	"sort"
	"unicode"
)

// mustParseScript is the package's "MustNewTag"-style helper for building
// the well-known script constants below, mirroring the pattern the teacher
// uses for [loader.MustNewTag] font-feature tags.
func mustParseScript(s string) Script {
	sc, err := ParseScript(s)
	if err != nil {
		panic(err)
	}
	return sc
}

// Special values and the scripts referenced by this repository's tests and
// the run-splitting logic. Additional scripts are reachable through
// [LookupScript] even though they have no named constant here.
var (
	Unknown   = mustParseScript("Zzzz")
	Common    = mustParseScript("Zyyy")
	Inherited = mustParseScript("Zinh")

	Latin      = mustParseScript("Latn")
	Arabic     = mustParseScript("Arab")
	Hebrew     = mustParseScript("Hebr")
	Cyrillic   = mustParseScript("Cyrl")
	Greek      = mustParseScript("Grek")
	Han        = mustParseScript("Hani")
	Hiragana   = mustParseScript("Hira")
	Katakana   = mustParseScript("Kana")
	Hangul     = mustParseScript("Hang")
	Thai       = mustParseScript("Thai")
	Devanagari = mustParseScript("Deva")
	Armenian   = mustParseScript("Armn")
	Georgian   = mustParseScript("Geor")
	Thaana     = mustParseScript("Thaa")
	Bengali    = mustParseScript("Beng")
	Gurmukhi   = mustParseScript("Guru")
	Gujarati   = mustParseScript("Gujr")
	Oriya      = mustParseScript("Orya")
	Tamil      = mustParseScript("Taml")
	Telugu     = mustParseScript("Telu")
	Kannada    = mustParseScript("Knda")
	Malayalam  = mustParseScript("Mlym")
	Sinhala    = mustParseScript("Sinh")
	Lao        = mustParseScript("Laoo")
	Tibetan    = mustParseScript("Tibt")
	Myanmar    = mustParseScript("Mymr")
	Ethiopic   = mustParseScript("Ethi")
	Cherokee   = mustParseScript("Cher")
	Ogham      = mustParseScript("Ogam")
	Runic      = mustParseScript("Runr")
	Khmer      = mustParseScript("Khmr")
	Mongolian  = mustParseScript("Mong")
	Bopomofo   = mustParseScript("Bopo")
	Yi         = mustParseScript("Yiii")
	Braille    = mustParseScript("Brai")
)

// unicodeScriptNames maps the stdlib's Unicode-script-property range table
// names (the keys of unicode.Scripts) to this package's Script tags. The
// full Unicode Script property is large generated data; rather than
// hand-maintaining a second copy of it, scriptRanges (below) is built once
// at init time directly from unicode.Scripts, the same underlying Unicode
// data the teacher's own (omitted-from-this-pack) generated table draws
// from.
var unicodeScriptNames = map[string]Script{
	"Common":              Common,
	"Inherited":            Inherited,
	"Latin":                Latin,
	"Arabic":               Arabic,
	"Hebrew":               Hebrew,
	"Cyrillic":             Cyrillic,
	"Greek":                Greek,
	"Han":                  Han,
	"Hiragana":             Hiragana,
	"Katakana":             Katakana,
	"Hangul":               Hangul,
	"Thai":                 Thai,
	"Devanagari":           Devanagari,
	"Armenian":             Armenian,
	"Georgian":             Georgian,
	"Thaana":               Thaana,
	"Bengali":              Bengali,
	"Gurmukhi":             Gurmukhi,
	"Gujarati":             Gujarati,
	"Oriya":                Oriya,
	"Tamil":                Tamil,
	"Telugu":               Telugu,
	"Kannada":              Kannada,
	"Malayalam":            Malayalam,
	"Sinhala":              Sinhala,
	"Lao":                  Lao,
	"Tibetan":              Tibetan,
	"Myanmar":              Myanmar,
	"Ethiopic":             Ethiopic,
	"Cherokee":             Cherokee,
	"Ogham":                Ogham,
	"Runic":                Runic,
	"Khmer":                Khmer,
	"Mongolian":            Mongolian,
	"Bopomofo":             Bopomofo,
	"Yi":                   Yi,
	"Braille":              Braille,
}

type scriptRange struct {
	Start, End rune
	Script     Script
}

// scriptRanges is a sorted, binary-searchable list of [Start, End] rune
// ranges mapping to a Script, consulted by LookupScript. It is assembled
// from unicode.Scripts (the stdlib's Unicode Script-property tables) for
// every script this package names; code points in Unicode scripts this
// package has no constant for resolve to Unknown, which LookupScript
// already returns for a failed search.
var scriptRanges []scriptRange

func init() {
	for name, sc := range unicodeScriptNames {
		table, ok := unicode.Scripts[name]
		if !ok {
			continue
		}
		for _, r16 := range table.R16 {
			scriptRanges = append(scriptRanges, scriptRange{
				Start: rune(r16.Lo), End: rune(r16.Hi), Script: sc,
			})
		}
		for _, r32 := range table.R32 {
			scriptRanges = append(scriptRanges, scriptRange{
				Start: rune(r32.Lo), End: rune(r32.Hi), Script: sc,
			})
		}
	}
	sort.Slice(scriptRanges, func(i, j int) bool {
		return scriptRanges[i].Start < scriptRanges[j].Start
	})
}
