package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english"), as typed in config
}

var languages = []entry{
	{"en", "English", []string{"english"}},
	{"zh", "Chinese", []string{"chinese", "mandarin", "cn"}},
	{"ja", "Japanese", []string{"japanese"}},
	{"ko", "Korean", []string{"korean"}},
	{"es", "Spanish", []string{"spanish"}},
	{"fr", "French", []string{"french"}},
	{"de", "German", []string{"german"}},
	{"ru", "Russian", []string{"russian"}},
}

var (
	byCode2 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// WhisperHint maps source metadata to a transcription language hint:
// "en…" becomes "en", "zh…" or "cn…" becomes "zh", anything else is ""
// (auto-detect).
func WhisperHint(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "en"):
		return "en"
	case strings.HasPrefix(raw, "zh"), strings.HasPrefix(raw, "cn"):
		return "zh"
	default:
		return ""
	}
}

// ToISO2 converts a language word, code, or BCP 47 tag to its ISO 639-1 base.
// Unrecognized input returns "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}

// IsEnglish reports whether a configured reading language means English.
func IsEnglish(readLanguage string) bool {
	return ToISO2(readLanguage) == "en"
}

// DisplayName returns a human-readable English name for a language label.
// Empty input yields "Unknown"; unparseable input is returned as given.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return trimmed
}
