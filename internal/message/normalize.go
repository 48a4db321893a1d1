package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devroom-hq/devroom/internal/filetree"
)

// Normalize coerces any raw payload into a renderable StructuredResult.
// It is total: every input produces a result with non-empty Text or a
// non-nil FileTree.
//
// Rules, in order:
//  1. An already-structured value is used as-is.
//  2. A string is strictly parsed as JSON; on success the parsed value is
//     treated as rule 1, on failure the string becomes {text: raw}.
//  3. If the outcome has neither text nor fileTree, it is replaced with
//     {text: <pretty-printed serialization>} so the caller always gets
//     something renderable rather than an opaque object.
//
// The same function runs server-side before persisting/broadcasting an AI
// result and client-side before rendering, because the two ends may
// receive the payload through different channels and must independently
// reach the same canonical shape.
func Normalize(raw any) StructuredResult {
	switch v := raw.(type) {
	case StructuredResult:
		if v.Renderable() {
			return v
		}
		return fallback(v)
	case *StructuredResult:
		if v == nil {
			return StructuredResult{Text: "null"}
		}
		return Normalize(*v)
	case string:
		return NormalizeText(v)
	case []byte:
		return NormalizeText(string(v))
	case nil:
		return StructuredResult{Text: "null"}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return StructuredResult{Text: fmt.Sprintf("%v", v)}
		}
		return normalizeJSON(data)
	}
}

// NormalizeText normalizes a raw string payload, typically the verbatim
// output of the generation upstream.
func NormalizeText(s string) StructuredResult {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		// An empty payload still has to render as something.
		return fallback(s)
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		// Not JSON: plain prose from the model.
		return StructuredResult{Text: s}
	}
	return normalizeParsed(parsed)
}

func normalizeJSON(data []byte) StructuredResult {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return StructuredResult{Text: string(data)}
	}
	return normalizeParsed(parsed)
}

func normalizeParsed(parsed any) StructuredResult {
	if obj, ok := parsed.(map[string]any); ok {
		if res, ok := fromObject(obj); ok {
			return res
		}
	}
	return fallback(parsed)
}

// fromObject extracts the recognized fields from a decoded JSON object.
// The second return is false when neither text nor fileTree survived,
// which sends the caller down the pretty-print fallback.
func fromObject(obj map[string]any) (StructuredResult, bool) {
	var res StructuredResult

	if s, ok := obj["text"].(string); ok {
		res.Text = s
	}

	if raw, ok := obj["fileTree"]; ok && raw != nil {
		if data, err := json.Marshal(raw); err == nil {
			var tree filetree.Tree
			if err := json.Unmarshal(data, &tree); err == nil && len(tree) > 0 {
				res.FileTree = tree
			}
		}
	}

	if raw, ok := obj["buildCommand"]; ok && raw != nil {
		if data, err := json.Marshal(raw); err == nil {
			var bc BuildCommand
			if err := json.Unmarshal(data, &bc); err == nil && bc.MainItem != "" {
				res.BuildCommand = &bc
			}
		}
	}

	return res, res.Renderable()
}

// fallback serializes an unrecognized value so it renders as readable
// JSON instead of an opaque object.
func fallback(v any) StructuredResult {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return StructuredResult{Text: fmt.Sprintf("%v", v)}
	}
	return StructuredResult{Text: string(pretty)}
}
