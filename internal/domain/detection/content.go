package detection

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Content is one detected value. The backend reports values either as free
// text (for example an IPv6 literal) or as a "key": "value" pair encoded in
// a string; Content holds whichever form was parsed.
type Content struct {
	Key   string
	Value string
	Text  string
	pair  bool
}

// Text creates a free-text content entry.
func Text(s string) Content {
	return Content{Text: s}
}

// Pair creates a single key/value content entry.
func Pair(key, value string) Content {
	return Content{Key: key, Value: value, pair: true}
}

// IsPair reports whether the content was parsed as a key/value pair.
func (c Content) IsPair() bool { return c.pair }

func (c Content) String() string {
	if c.pair {
		return fmt.Sprintf("%q: %q", c.Key, c.Value)
	}
	return c.Text
}

// MarshalJSON renders pairs as a single-key object and text as a string.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.pair {
		return json.Marshal(map[string]string{c.Key: c.Value})
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string or a single-key object.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Text(s)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("content must be a string or a key/value object: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("content object must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		*c = Pair(k, v)
	}
	return nil
}

// keyValuePattern matches `key: value` with optional quotes around either side.
// Keys are letters (any script), digits and underscores.
var keyValuePattern = regexp.MustCompile(`^\s*([\p{L}\p{N}_]+)"?\s*:\s*"?\s*(.+?)\s*"?$`)

// ParseContent normalizes one raw content string. ok is false for blank input.
func ParseContent(raw string) (c Content, ok bool) {
	item := strings.TrimSpace(raw)
	if len(item) >= 2 {
		first, last := item[0], item[len(item)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			item = item[1 : len(item)-1]
		}
	}
	if item == "" {
		return Content{}, false
	}

	// More than one colon is never a key/value pair (IPv6, host:port pairs, times).
	if strings.Count(item, ":") > 1 {
		return Text(item), true
	}

	if m := keyValuePattern.FindStringSubmatch(item); m != nil {
		return Pair(m[1], m[2]), true
	}
	return Text(item), true
}
