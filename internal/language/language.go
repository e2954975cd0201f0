package language

import (
	"strings"
	"unicode"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// learnerLanguages are the languages whose English and native names are
// accepted as input ("spanish", "español").
var learnerLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ru",
	"ar", "hi", "nl", "pl", "sv", "da", "no", "fi", "tr", "uk",
}

// bibliographic maps ISO 639-2/B codes that tag parsing does not fold.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
	"per": "fa",
	"rum": "ro",
}

var byName map[string]string

func init() {
	english := display.English.Languages()
	byName = make(map[string]string, len(learnerLanguages)*2)
	for _, code := range learnerLanguages {
		tag := xlang.MustParse(code)
		byName[strings.ToLower(english.Name(tag))] = code
		if self := display.Self.Name(tag); self != "" {
			byName[strings.ToLower(self)] = code
		}
	}
}

// ToISO2 maps a language code or name to ISO 639-1. Unknown two-letter codes
// pass through; anything else unrecognized yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := byName[code]; ok {
		return mapped
	}
	if mapped, ok := bibliographic[code]; ok {
		return mapped
	}
	if base := parseBase(code); len(base) == 2 {
		return base
	}
	if len(code) == 2 && isLetters(code) {
		return code
	}
	return ""
}

// Normalize reduces a BCP-47 tag, ISO 639 code, or language name to its
// lower-case ISO 639-1 base ("pt-BR" -> "pt", "eng" -> "en", "Deutsch" ->
// "de"). Unparseable input yields "".
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if mapped := ToISO2(code); mapped != "" {
		return mapped
	}
	return ToISO2(parseBase(code))
}

func parseBase(code string) string {
	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for code, "Unknown" for empty input,
// or the upper-cased input when the language is not recognized.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	iso := Normalize(trimmed)
	if iso == "" {
		return strings.ToUpper(trimmed)
	}
	tag, err := xlang.Parse(iso)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// NormalizeList normalizes codes to ISO 639-1 and drops duplicates, keeping
// first-seen order. Codes that cannot be normalized are kept lower-cased.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		code := strings.ToLower(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if mapped := Normalize(code); mapped != "" {
			code = mapped
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Matches reports whether two language codes share the same base language.
func Matches(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// IsEnglish reports whether code refers to English.
func IsEnglish(code string) bool {
	return Normalize(code) == "en"
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
