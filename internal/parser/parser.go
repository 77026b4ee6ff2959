package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"slack-summarizer/internal/summary"
)

// maxDepth bounds how many wrapper layers are unwrapped.
const maxDepth = 4

var (
	fenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	labelRe  = regexp.MustCompile(`(?i)(?:^|[\s{,"'*_>#])(summary|keywords)["'*_]*\s*[:=]`)
	bulletRe = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

	// wrapperKeys hold the reply text when a provider nests it.
	wrapperKeys = []string{"text", "content", "output", "message"}
)

// Parse coerces a model reply into a summary.Result.
// Order: structured object, string as JSON, tolerant label scan. Anything else is ParseFailed
// with the raw reply attached.
func Parse(reply Reply) (summary.Result, error) {
	if reply == nil {
		return summary.Result{}, summary.Fail(summary.ParseFailed, "empty reply")
	}
	res, ok := coerce(reply, 0)
	if !ok {
		return summary.Result{}, &summary.Error{
			Kind:   summary.ParseFailed,
			Detail: "reply does not match the summary schema",
			Raw:    reply.raw(),
		}
	}
	return res, nil
}

func coerce(reply Reply, depth int) (summary.Result, bool) {
	if depth > maxDepth {
		return summary.Result{}, false
	}
	switch r := reply.(type) {
	case ObjectReply:
		return fromObject(r, depth)
	case MessageReply:
		return coerce(TextReply(r.Content), depth+1)
	case TextReply:
		return fromText(string(r), depth)
	}
	return summary.Result{}, false
}

func fromObject(obj map[string]any, depth int) (summary.Result, bool) {
	summaryVal, hasSummary := lookup(obj, "summary")
	keywordsVal, hasKeywords := lookup(obj, "keywords")
	if hasSummary || hasKeywords {
		return summary.NewResult(stringValue(summaryVal), keywordList(keywordsVal)), true
	}

	for _, key := range wrapperKeys {
		v, ok := lookup(obj, key)
		if !ok {
			continue
		}
		switch inner := v.(type) {
		case string:
			return coerce(TextReply(inner), depth+1)
		case map[string]any:
			return coerce(ObjectReply(inner), depth+1)
		}
	}
	return summary.Result{}, false
}

func fromText(text string, depth int) (summary.Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return summary.Result{}, false
	}

	if res, ok := fromJSON(text, depth); ok {
		return res, true
	}
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if res, ok := fromJSON(strings.TrimSpace(m[1]), depth); ok {
			return res, true
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if res, ok := fromJSON(text[start:end+1], depth); ok {
			return res, true
		}
	}
	return scanLabels(text)
}

func fromJSON(text string, depth int) (summary.Result, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return summary.Result{}, false
	}
	switch val := v.(type) {
	case map[string]any:
		return coerce(ObjectReply(val), depth+1)
	case string:
		return coerce(TextReply(val), depth+1)
	}
	return summary.Result{}, false
}

// scanLabels pulls "summary:" and "keywords:" sections out of loosely formatted text.
// The first occurrence of each label wins; a section runs until the next label.
func scanLabels(text string) (summary.Result, bool) {
	type label struct {
		name       string
		start, end int
	}
	var labels []label
	seen := make(map[string]bool, 2)
	for _, m := range labelRe.FindAllStringSubmatchIndex(text, -1) {
		name := strings.ToLower(text[m[2]:m[3]])
		if seen[name] {
			continue
		}
		seen[name] = true
		labels = append(labels, label{name: name, start: m[2], end: m[1]})
	}
	if len(labels) == 0 {
		return summary.Result{}, false
	}

	var summaryText, keywordsText string
	for i, l := range labels {
		valueEnd := len(text)
		if i+1 < len(labels) {
			valueEnd = labels[i+1].start
		}
		value := cleanValue(text[l.end:valueEnd])
		if l.name == "summary" {
			summaryText = value
		} else {
			keywordsText = value
		}
	}
	return summary.NewResult(summaryText, splitKeywords(keywordsText)), true
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimRight(v, " \t\r\n,}`\"'*_")
	v = strings.TrimLeft(v, " \t\r\n\"'*_")
	return strings.TrimSpace(v)
}

// lookup finds key case-insensitively, preferring an exact match.
func lookup(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	var matches []string
	for k := range obj {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return obj[matches[0]], true
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func keywordList(v any) []string {
	switch kw := v.(type) {
	case nil:
		return nil
	case []string:
		return kw
	case []any:
		out := make([]string, 0, len(kw))
		for _, item := range kw {
			if item == nil {
				continue
			}
			out = append(out, stringValue(item))
		}
		return out
	case string:
		return splitKeywords(kw)
	default:
		return splitKeywords(fmt.Sprint(kw))
	}
}

// splitKeywords accepts a JSON array, a comma-separated list or one keyword per line.
func splitKeywords(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return keywordList(list)
		}
		s = strings.Trim(s, "[]")
	}

	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Split(s, "\n")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = bulletRe.ReplaceAllString(strings.TrimSpace(p), "")
		p = strings.Trim(p, " \t\r\"'`*_")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
