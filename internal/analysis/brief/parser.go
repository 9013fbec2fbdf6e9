package brief

import (
	"strings"
)

// aliases maps the spellings people type onto canonical workflow field keys.
var aliases = map[string][]string{
	"description":  {"description", "desc", "strategy", "funnel", "details"},
	"industry":     {"industry", "sector", "niche", "vertical"},
	"audience":     {"audience", "target", "target audience", "customers"},
	"budget":       {"budget", "monthly budget", "spend"},
	"website":      {"website", "site", "url", "website info"},
	"total_budget": {"total budget", "total", "total_budget"},
	"goals":        {"goals", "goal", "objectives", "business goals"},
}

var canonical = buildCanonical()

// maxKeyLen bounds keys that are not aliases, so sentences are never keys.
const maxKeyLen = 24

func buildCanonical() map[string]string {
	out := make(map[string]string)
	for key, words := range aliases {
		for _, w := range words {
			out[normalizeKey(w)] = key
		}
	}
	return out
}

// Parse reads an inline brief such as
// "industry=bakery, audience=local families, budget=$500/mo" into fields.
// Separators are commas, semicolons or newlines; ':' works like '='.
// A segment only starts a new field when it opens with a recognised key, so
// "total_budget=$10,000" keeps its comma. Text before the first key becomes
// "description".
func Parse(text string) map[string]string {
	fields, _ := parse(text)
	return fields
}

// Explicit reports whether text names any of keys as a key=value pair, as
// opposed to mentioning it in loose text.
func Explicit(text string, keys ...string) bool {
	_, named := parse(text)
	for _, key := range keys {
		if named[key] {
			return true
		}
	}
	return false
}

func parse(text string) (map[string]string, map[string]bool) {
	fields := make(map[string]string)
	named := make(map[string]bool)

	var (
		loose   strings.Builder
		current string
	)
	for _, seg := range segments(text) {
		if key, value, ok := splitPair(seg.text); ok {
			current = Canonical(key)
			fields[current] = value
			named[current] = true
			continue
		}
		if current == "" {
			if loose.Len() > 0 {
				loose.WriteString(seg.sep)
			}
			loose.WriteString(seg.text)
			continue
		}
		fields[current] += seg.sep + seg.text
	}

	for key, value := range fields {
		fields[key] = strings.TrimSpace(value)
	}
	if desc := strings.TrimSpace(loose.String()); desc != "" {
		if existing := fields["description"]; existing != "" {
			desc = desc + ", " + existing
		}
		fields["description"] = desc
	}
	return fields, named
}

type segment struct {
	sep  string
	text string
}

// segments splits on separators and remembers the separator before each
// piece so continuation text can be rejoined verbatim.
func segments(text string) []segment {
	var (
		out   []segment
		sep   string
		start int
	)
	for i, r := range text {
		if r != ',' && r != ';' && r != '\n' {
			continue
		}
		out = append(out, segment{sep: sep, text: text[start:i]})
		sep = string(r)
		start = i + 1
	}
	return append(out, segment{sep: sep, text: text[start:]})
}

// Canonical maps an alias to its workflow field key; unknown keys are
// normalized and returned as-is.
func Canonical(key string) string {
	normalized := normalizeKey(key)
	if c, ok := canonical[normalized]; ok {
		return c
	}
	return strings.ReplaceAll(normalized, " ", "_")
}

// Missing returns the required keys that are absent or blank in fields.
func Missing(fields map[string]string, required []string) []string {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(fields[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func splitPair(segment string) (string, string, bool) {
	idx := strings.IndexAny(segment, "=:")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(segment[:idx])
	value := strings.TrimSpace(segment[idx+1:])
	if !validKey(key) || strings.HasPrefix(value, "//") {
		return "", "", false
	}
	return key, value, true
}

// validKey accepts aliases and short identifiers such as "launch_date".
func validKey(key string) bool {
	if _, ok := canonical[normalizeKey(key)]; ok {
		return true
	}
	if key == "" || len(key) > maxKeyLen {
		return false
	}
	for i, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r == '_' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return strings.Join(strings.Fields(key), " ")
}
