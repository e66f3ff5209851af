package extraction

import (
	"strings"
)

// Chunk is a slice of a document sent to the model in one prompt.
type Chunk struct {
	Index int
	Text  string
}

// Split points in order of preference.
var splitRunes = []rune{'.', '。', '\n', '!', '！', '?', '？', ';', '；', ',', '，', ' '}

// SplitText cuts text into chunks of at most size runes that overlap by
// overlap runes. A chunk ends after the preferred split rune found in its
// last 30%, or at size when there is none. Chunks are trimmed and empty ones
// dropped.
func SplitText(text string, size, overlap int) []Chunk {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		if t := strings.TrimSpace(text); t != "" {
			return []Chunk{{Index: 0, Text: t}}
		}
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var raw []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			raw = append(raw, string(runes[start:]))
			break
		}
		if split := bestSplit(runes[start:end]); split > 0 {
			end = start + split
		}
		raw = append(raw, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	var chunks []Chunk
	for _, r := range raw {
		if t := strings.TrimSpace(r); t != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: t})
		}
	}
	return chunks
}

func bestSplit(window []rune) int {
	floor := len(window) * 7 / 10
	for _, sep := range splitRunes {
		for i := len(window) - 1; i > floor; i-- {
			if window[i] == sep {
				return i + 1
			}
		}
	}
	return 0
}
