package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pithecene-io/codestory/llm"
	"github.com/pithecene-io/codestory/types"
)

// DecodeExplanation turns completion text into an Explanation.
//
// Decoding is lenient below the top level: a field of the wrong shape
// becomes its zero value (strings "", lists empty) and annotation entries
// are kept raw for the normalizer. Only text that does not hold a JSON
// object fails, with llm.ErrResponseInvalid.
func DecodeExplanation(content string) (*types.Explanation, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(content)), &top); err != nil || top == nil {
		return nil, fmt.Errorf("decode explanation: not a JSON object: %w", llm.ErrResponseInvalid)
	}

	exp := &types.Explanation{
		Summary:      looseString(top["summary"]),
		Walkthrough:  looseStrings(top["walkthrough"]),
		RiskOverview: looseString(top["risk_overview"]),
		Suggestions:  looseStrings(top["suggestions"]),
		Annotations:  rawAnnotations(top["annotations"]),
	}

	var issues map[string]json.RawMessage
	if json.Unmarshal(top["issues"], &issues) == nil {
		exp.Issues.Performance = issueItems(issues["performance"])
		exp.Issues.Security = issueItems(issues["security"])
		exp.Issues.Maintainability = issueItems(issues["maintainability"])
	} else {
		exp.Issues = types.Issues{Performance: []types.IssueItem{}, Security: []types.IssueItem{}, Maintainability: []types.IssueItem{}}
	}
	return exp, nil
}

// extractJSON strips a Markdown code fence and any prose around the first
// JSON object.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		// drop the info string, e.g. ```json
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			trimmed = trimmed[nl+1:]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	if obj, ok := extractJSONObject(trimmed); ok {
		return obj
	}
	return trimmed
}

// extractJSONObject returns the first balanced {...} in text, ignoring
// braces inside strings.
func extractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// looseString reads a scalar as text. Objects and arrays read as "".
func looseString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed[0] == '{' || trimmed[0] == '[' {
		return ""
	}
	var s types.LooseString
	_ = json.Unmarshal([]byte(trimmed), &s)
	return s.Value
}

func looseStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, looseString(item))
	}
	return out
}

func issueItems(raw json.RawMessage) []types.IssueItem {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []types.IssueItem{}
	}
	out := make([]types.IssueItem, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		_ = json.Unmarshal(item, &fields)
		out = append(out, types.IssueItem{
			Message:     looseString(fields["message"]),
			Severity:    types.ParseSeverity(looseString(fields["severity"])),
			Explanation: looseString(fields["explanation"]),
		})
	}
	return out
}

// rawAnnotations keeps one entry per array element. Elements that are not
// objects decode to an all-missing annotation so the normalizer still sees
// them.
func rawAnnotations(raw json.RawMessage) []types.RawAnnotation {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []types.RawAnnotation{}
	}
	out := make([]types.RawAnnotation, 0, len(items))
	for _, item := range items {
		var ann types.RawAnnotation
		if json.Unmarshal(item, &ann) != nil {
			ann = types.RawAnnotation{}
		}
		out = append(out, ann)
	}
	return out
}
