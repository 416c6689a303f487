package agents

import (
	"encoding/json"
	"strings"

	"tradecouncil/pkg/errors"
)

// OnFailure decides what ParseJSON does with model output it cannot decode
type OnFailure[T any] struct {
	useDefault bool
	value      T
	observe    func(*errors.ParseError)
}

// Abort makes ParseJSON return a *errors.ParseError
func Abort[T any]() OnFailure[T] {
	return OnFailure[T]{}
}

// Default makes ParseJSON return v without an error
func Default[T any](v T) OnFailure[T] {
	return OnFailure[T]{useDefault: true, value: v}
}

// Observe registers fn to be told about a tolerated failure before the
// default is returned. It has no effect under Abort.
func (p OnFailure[T]) Observe(fn func(*errors.ParseError)) OnFailure[T] {
	p.observe = fn
	return p
}

// ParseJSON decodes a model reply into T. Markdown code fences and prose
// around the outermost JSON value are ignored.
func ParseJSON[T any](stage, text string, policy OnFailure[T]) (T, error) {
	var out T

	valid, first := jsonSpans(text)
	if len(valid) == 0 && first == "" {
		return policy.fail(stage, text, errors.New("no JSON value in reply"))
	}

	// a bracketed aside in prose can be valid JSON of the wrong shape
	var err error
	for _, raw := range valid {
		var v T
		if err = json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
	}
	if len(valid) == 0 {
		err = json.Unmarshal([]byte(first), &out)
	}
	return policy.fail(stage, text, err)
}

func (p OnFailure[T]) fail(stage, text string, cause error) (T, error) {
	perr := errors.NewParseError(stage, truncate(text, 512), cause)
	if !p.useDefault {
		var zero T
		return zero, perr
	}
	if p.observe != nil {
		p.observe(perr)
	}
	return p.value, nil
}

// extractJSON returns the first JSON value embedded in text, or the first
// candidate span when none is valid.
func extractJSON(text string) string {
	valid, first := jsonSpans(text)
	if len(valid) > 0 {
		return valid[0]
	}
	return first
}

// jsonSpans strips ``` fences and collects, left to right, each span from an
// opening brace or bracket to the last matching closer that is valid JSON.
// first is the leftmost span regardless of validity.
func jsonSpans(text string) (valid []string, first string) {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop the language tag on the fence line
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	for i := 0; i < len(s); i++ {
		closer := byte('}')
		switch s[i] {
		case '{':
		case '[':
			closer = ']'
		default:
			continue
		}

		end := strings.LastIndexByte(s, closer)
		if end < i {
			continue
		}
		span := s[i : end+1]
		if first == "" {
			first = span
		}
		if json.Valid([]byte(span)) {
			valid = append(valid, span)
			// nested values of an accepted span add nothing
			i = end
		}
	}
	return valid, first
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
