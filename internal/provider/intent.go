package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"marketsense/internal/model"
)

// ErrMalformedIntent is returned when the resolver output is not a JSON object.
var ErrMalformedIntent = errors.New("malformed intent")

// ParseIntent extracts an intent from model output. Markdown code fences and
// prose around the JSON object are tolerated; missing fields are left empty.
func ParseIntent(raw string) (model.Intent, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return model.Intent{}, fmt.Errorf("%w: no JSON object in %q", ErrMalformedIntent, truncate(raw, 80))
		}
		body = body[start : end+1]
		if !gjson.Valid(body) {
			return model.Intent{}, fmt.Errorf("%w: invalid JSON in %q", ErrMalformedIntent, truncate(raw, 80))
		}
	}

	result := gjson.Parse(body)
	if !result.IsObject() {
		return model.Intent{}, fmt.Errorf("%w: expected an object, got %s", ErrMalformedIntent, result.Type)
	}

	return model.Intent{
		Commodity:      field(result, "commodity"),
		Market:         field(result, "market"),
		OriginalIntent: field(result, "original_intent"),
	}, nil
}

func field(result gjson.Result, name string) string {
	v := result.Get(name)
	if v.Type != gjson.String {
		return ""
	}
	s := strings.TrimSpace(v.String())
	switch strings.ToLower(s) {
	case "null", "none", "unknown", "n/a":
		return ""
	}
	return s
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
