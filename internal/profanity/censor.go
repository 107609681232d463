package profanity

import "unicode"

// MaskRune replaces masked letters.
const MaskRune = '*'

// Render masks the letters inside each span while keeping the text length.
// Spans with one or two letters are fully masked; longer spans keep their
// first and last letter. Non-letter characters are always preserved.
func Render(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	for _, span := range spans {
		start := max(span.Start, 0)
		end := min(span.End, len(runes))
		if start >= end {
			continue
		}

		letters := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			if unicode.IsLetter(runes[i]) {
				letters = append(letters, i)
			}
		}

		if len(letters) <= 2 {
			for _, i := range letters {
				runes[i] = MaskRune
			}
			continue
		}

		for _, i := range letters[1 : len(letters)-1] {
			runes[i] = MaskRune
		}
	}

	return string(runes)
}
