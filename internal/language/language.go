package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2 string   // ISO 639-1 (2-letter)
	code3 string   // ISO 639-2 primary (3-letter)
	alt3  string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	words []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", []string{"english"}},
	{"es", "spa", "", []string{"spanish", "espanol", "español"}},
	{"fr", "fra", "fre", []string{"french"}},
	{"de", "deu", "ger", []string{"german"}},
	{"it", "ita", "", []string{"italian"}},
	{"pt", "por", "", []string{"portuguese"}},
	{"ja", "jpn", "", []string{"japanese"}},
	{"ko", "kor", "", []string{"korean"}},
	{"zh", "zho", "chi", []string{"chinese"}},
	{"ru", "rus", "", []string{"russian"}},
	{"ar", "ara", "", []string{"arabic"}},
	{"hi", "hin", "", []string{"hindi"}},
	{"nl", "nld", "dut", []string{"dutch"}},
	{"pl", "pol", "", []string{"polish"}},
	{"sv", "swe", "", []string{"swedish"}},
	{"da", "dan", "", []string{"danish"}},
	{"no", "nor", "", []string{"norwegian"}},
	{"fi", "fin", "", []string{"finnish"}},
	{"tr", "tur", "", []string{"turkish"}},
	{"uk", "ukr", "", []string{"ukrainian"}},
}

var (
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// Canonical converts a user supplied language identifier to a BCP 47 tag
// string such as "es", "pt-BR", or "zh-Hant".
func Canonical(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("empty language code")
	}
	lower := strings.ToLower(trimmed)
	if e, ok := byWord[lower]; ok {
		return e.code2, nil
	}
	if e, ok := byCode3[lower]; ok {
		return e.code2, nil
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", code, err)
	}
	if tag == xlanguage.Und {
		return "", fmt.Errorf("unrecognized language %q", code)
	}
	return tag.String(), nil
}

// ToISO2 returns the two-letter base language for any recognized identifier.
// Returns "" for unrecognized input.
func ToISO2(code string) string {
	canonical, err := Canonical(code)
	if err != nil {
		return ""
	}
	tag, err := xlanguage.Parse(canonical)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	if value := base.String(); len(value) == 2 {
		return value
	}
	return ""
}

// DisplayName returns the English name of a language tag, falling back to
// the uppercased input when the tag is unknown.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	canonical, err := Canonical(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	name := display.English.Tags().Name(xlanguage.Make(canonical))
	if name == "" {
		return strings.ToUpper(trimmed)
	}
	return name
}
