package label

import "strings"

// Location is where inside an HTTP message a label value is expected.
type Location string

const (
	StartLine Location = "start_line"
	Headers   Location = "headers"
	Body      Location = "body"
)

// Locations lists every location in classification order.
var Locations = []Location{StartLine, Headers, Body}

// Scope selects which asset kinds a sample applies to. The two rules are
// independent: a sample can apply to API traffic, files, both, or neither.
type Scope int

// AppliesToAPI reports whether the sample is sent as API traffic.
func (s Scope) AppliesToAPI() bool { return s < 2 }

// AppliesToFiles reports whether the sample is embedded in uploaded files.
func (s Scope) AppliesToFiles() bool { return s%2 == 0 }

// RequestFieldSample holds the fragments expected at each message location.
type RequestFieldSample struct {
	StartLine []string `yaml:"start_line" json:"start_line"`
	Headers   []string `yaml:"headers" json:"headers"`
	Body      []string `yaml:"body" json:"body"`
}

// Fragments returns the fragments for one location.
func (r RequestFieldSample) Fragments(loc Location) []string {
	switch loc {
	case StartLine:
		return r.StartLine
	case Headers:
		return r.Headers
	case Body:
		return r.Body
	default:
		return nil
	}
}

// FileContentSample is one value written into every generated test file.
type FileContentSample struct {
	Value string
}

// Sample is the expected label content for one data label. Samples are
// loaded once per specification and never mutated.
type Sample struct {
	ID       string
	Name     string
	Scope    Scope
	Body     []RequestFieldSample
	FileData []FileContentSample
}

// Expected returns the ordered fragments expected at loc across all field samples.
func (s *Sample) Expected(loc Location) []string {
	var out []string
	for _, f := range s.Body {
		out = append(out, f.Fragments(loc)...)
	}
	return out
}

// ExpectedCount is the total number of fragments expected across all locations.
func (s *Sample) ExpectedCount() int {
	n := 0
	for _, loc := range Locations {
		n += len(s.Expected(loc))
	}
	return n
}

// Specification is a named ruleset under which a batch of labels is tested.
type Specification struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Slug is the specification name made safe for use as a directory name.
func (s Specification) Slug() string {
	return strings.ReplaceAll(s.Name, "/", "_")
}

// SplitByScope partitions samples into API and file samples, keeping order.
func SplitByScope(samples []*Sample) (api, file []*Sample) {
	for _, s := range samples {
		if s.Scope.AppliesToAPI() {
			api = append(api, s)
		}
		if s.Scope.AppliesToFiles() {
			file = append(file, s)
		}
	}
	return api, file
}
