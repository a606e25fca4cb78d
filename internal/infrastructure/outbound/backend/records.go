package backend

import (
	"encoding/json"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
)

// APIAssetRecord is the subset of an API asset row the verification needs.
type APIAssetRecord struct {
	ID            int    `json:"id"`
	HTTPAuthority string `json:"http_authority"`
	HTTPPath      string `json:"http_path"`
	AppName       string `json:"app_name"`
	CallCount     int    `json:"call_count"`
}

// FileAssetRecord is the subset of a file asset row the verification needs.
type FileAssetRecord struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Format     string   `json:"format"`
	MD5        string   `json:"md5"`
	Size       int64    `json:"size"`
	DataLabels []string `json:"data_labels"`
}

// labelItem is one detected label at one location of a raw call record.
// Contents stay raw so one oddly shaped entry cannot reject the record.
type labelItem struct {
	Name     string            `json:"name"`
	Count    int               `json:"count"`
	Contents []json.RawMessage `json:"contents"`
}

// contents normalizes the item's entries. Strings are parsed as text or
// key/value pairs, single-key objects become pairs, and anything else is
// kept verbatim as text. Blank strings are dropped.
func (it labelItem) contents() []detection.Content {
	out := make([]detection.Content, 0, len(it.Contents))
	for _, raw := range it.Contents {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if c, ok := detection.ParseContent(s); ok {
				out = append(out, c)
			}
			continue
		}
		var c detection.Content
		if err := c.UnmarshalJSON(raw); err == nil {
			out = append(out, c)
			continue
		}
		out = append(out, detection.Text(string(raw)))
	}
	return out
}

type rankItem struct {
	DataLabel string `json:"data_label"`
	DataCount int    `json:"data_count"`
}
