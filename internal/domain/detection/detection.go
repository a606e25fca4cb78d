package detection

import (
	"slices"
	"sort"

	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// Part is a side of an HTTP exchange.
type Part string

const (
	Request  Part = "request"
	Response Part = "response"
)

// Parts lists both sides in classification order.
var Parts = []Part{Request, Response}

// Hit is what the backend detected for one label at one location.
type Hit struct {
	Count    int       `json:"count"`
	Contents []Content `json:"contents"`
}

// Weight is the number of detections a hit stands for. A present entry
// always counts as at least one detection, even when the backend reported
// a non-positive count.
func (h Hit) Weight() int {
	if h.Count > 0 {
		return h.Count
	}
	return max(1, len(h.Contents))
}

// Contains reports whether c is among the hit's contents.
func (h Hit) Contains(c Content) bool {
	return slices.Contains(h.Contents, c)
}

// LocationDetections maps label name to its hit at one location.
type LocationDetections map[string]Hit

// Names returns the label names in sorted order.
func (d LocationDetections) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Without returns a copy of d without the named label. d is not modified.
func (d LocationDetections) Without(name string) LocationDetections {
	out := make(LocationDetections, len(d))
	for n, h := range d {
		if n != name {
			out[n] = h
		}
	}
	return out
}

// PartDetections holds the detections for each location of one message part.
type PartDetections struct {
	StartLine LocationDetections `json:"start_line,omitempty"`
	Headers   LocationDetections `json:"headers,omitempty"`
	Body      LocationDetections `json:"body,omitempty"`
}

// At returns the detections for loc; nil when none were reported.
func (p PartDetections) At(loc label.Location) LocationDetections {
	switch loc {
	case label.StartLine:
		return p.StartLine
	case label.Headers:
		return p.Headers
	case label.Body:
		return p.Body
	default:
		return nil
	}
}

// Set stores the detections for loc.
func (p *PartDetections) Set(loc label.Location, d LocationDetections) {
	switch loc {
	case label.StartLine:
		p.StartLine = d
	case label.Headers:
		p.Headers = d
	case label.Body:
		p.Body = d
	}
}

// Payload is the detection result for one API asset. It is fetched fresh
// for every verification; the backend's state can lag behind writes.
type Payload struct {
	StorageState int            `json:"storage_state"`
	Request      PartDetections `json:"request"`
	Response     PartDetections `json:"response"`
}

// Part returns the detections for one side of the exchange.
func (p *Payload) Part(part Part) PartDetections {
	if p == nil {
		return PartDetections{}
	}
	switch part {
	case Request:
		return p.Request
	case Response:
		return p.Response
	default:
		return PartDetections{}
	}
}
