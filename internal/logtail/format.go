package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Attrs     []Attr
}

// Attr is a key/value pair from a log record, rendered as text.
type Attr struct {
	Key   string
	Value string
}

var reserved = map[string]bool{
	"timestamp": true,
	"time":      true,
	"level":     true,
	"msg":       true,
	"component": true,
	"service":   true,
}

// Parse decodes a JSON log line. ok is false for anything that is not a
// JSON object.
func Parse(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Entry{}, false
	}

	var e Entry
	for _, key := range []string{"timestamp", "time"} {
		if s, ok := raw[key].(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				e.Time = ts
				break
			}
		}
	}
	e.Level, _ = raw["level"].(string)
	e.Message, _ = raw["msg"].(string)
	e.Component, _ = raw["component"].(string)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Attrs = append(e.Attrs, Attr{Key: k, Value: renderValue(raw[k])})
	}
	return e, true
}

// Format renders a log line for the log pane. Lines that are not JSON are
// returned unchanged.
func Format(line string) string {
	e, ok := Parse(line)
	if !ok {
		return line
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value)
	}
	return b.String()
}

// FormatLines applies Format to every line.
func FormatLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Format(l)
	}
	return out
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
