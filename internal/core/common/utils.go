package common

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when a model response carries no parseable JSON.
var ErrNoJSON = errors.New("no JSON found in response")

// FindJSON locates the JSON payload inside an LLM response. It handles
// common LLM quirks like surrounding markdown or extra text: the span from the
// first '[' or '{' to the last matching closer is tried first, then the other
// bracket kind.
func FindJSON(response string) (gjson.Result, error) {
	text := strings.TrimSpace(response)
	if gjson.Valid(text) {
		if r := gjson.Parse(text); r.IsArray() || r.IsObject() {
			return r, nil
		}
	}

	arr := span(text, '[', ']')
	obj := span(text, '{', '}')
	first, second := arr, obj
	if obj.start >= 0 && (arr.start < 0 || obj.start < arr.start) {
		first, second = obj, arr
	}
	for _, s := range []bracketSpan{first, second} {
		if s.start < 0 {
			continue
		}
		if candidate := text[s.start:s.end]; gjson.Valid(candidate) {
			return gjson.Parse(candidate), nil
		}
	}
	return gjson.Result{}, ErrNoJSON
}

type bracketSpan struct{ start, end int }

func span(s string, open, close byte) bracketSpan {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end < start {
		return bracketSpan{-1, -1}
	}
	return bracketSpan{start, end + 1}
}
