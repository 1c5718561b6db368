package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const bytesPerToken = 4

// EstimateTokens approximates the number of tokens in text.
func EstimateTokens(text string) int {
	total := 0
	for _, unit := range split(text) {
		total += unit.cost
	}
	return total
}

// Chunk splits text into consecutive pieces whose estimated token count is at
// most budget, breaking on whitespace where possible. Joining the chunks
// yields text again. Empty text yields a single empty chunk.
func Chunk(text string, budget int) []string {
	if text == "" || budget <= 0 {
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
		used   int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			used = 0
		}
	}
	for _, u := range split(text) {
		if u.cost > budget {
			flush()
			chunks = append(chunks, hardSplit(u.text, budget)...)
			continue
		}
		if used+u.cost > budget {
			flush()
		}
		cur.WriteString(u.text)
		used += u.cost
	}
	flush()
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

type unit struct {
	text string
	cost int
}

// split breaks text into words (with trailing whitespace), single CJK
// characters, and single punctuation marks.
func split(text string) []unit {
	var (
		units []unit
		start = -1
	)
	closeWord := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		units = append(units, unit{text: word, cost: wordCost(strings.TrimRightFunc(word, unicode.IsSpace))})
		start = -1
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			if start < 0 {
				if len(units) > 0 {
					units[len(units)-1].text += string(r)
				} else {
					units = append(units, unit{text: string(r)})
				}
			}
		case isWide(r):
			closeWord(i)
			units = append(units, unit{text: string(r), cost: 1})
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start >= 0 && i > 0 {
				prev, _ := utf8.DecodeLastRuneInString(text[:i])
				if unicode.IsSpace(prev) {
					closeWord(i)
				}
			}
			if start < 0 {
				start = i
			}
		default:
			closeWord(i)
			units = append(units, unit{text: string(r), cost: 1})
		}
	}
	closeWord(len(text))
	return units
}

func wordCost(word string) int {
	if word == "" {
		return 0
	}
	return (len(word) + bytesPerToken - 1) / bytesPerToken
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func hardSplit(word string, budget int) []string {
	limit := budget * bytesPerToken
	var pieces []string
	for len(word) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(word[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(word)
		}
		pieces = append(pieces, word[:cut])
		word = word[cut:]
	}
	if word != "" {
		pieces = append(pieces, word)
	}
	return pieces
}
