package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// extractor attempts to pull a JSON object out of raw model text. The chain
// below is tried in order; the first success wins.
type extractor func(content string) (map[string]any, error)

var extractors = []extractor{
	extractFencedJSON,
	extractWholeText,
}

// ExtractJSON parses a JSON object out of a raw model response. Reasoning
// models wrap their scratch work in <think> blocks, which are stripped
// first; the remainder is tried as a ```json fence, then as bare JSON.
func ExtractJSON(content string) (map[string]any, error) {
	cleaned := strings.TrimSpace(thinkBlockRe.ReplaceAllString(content, ""))
	var lastErr error
	for _, extract := range extractors {
		result, err := extract(cleaned)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func extractFencedJSON(content string) (map[string]any, error) {
	start := strings.Index(content, "```json")
	if start == -1 {
		return nil, fmt.Errorf("no json code fence")
	}
	rest := content[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return nil, fmt.Errorf("unterminated json code fence")
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &result); err != nil {
		return nil, fmt.Errorf("parse fenced json: %w", err)
	}
	return result, nil
}

func extractWholeText(content string) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parse response as json: %w", err)
	}
	return result, nil
}
