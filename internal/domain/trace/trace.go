package trace

import "time"

// Kind classifies traffic received by the target server.
type Kind string

const (
	KindAPI    Kind = "api"
	KindUpload Kind = "upload"
)

// Entry records one request the target server received.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	LabelID   string    `json:"label_id,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	Bytes     int       `json:"bytes"`
}
