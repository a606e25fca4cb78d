package verdict

import (
	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// Status is the verdict for one part or one file label.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusFailed Status = "FAILED"
)

// Set groups per-location values with a running count.
type Set[T any] struct {
	ByLocation map[label.Location]T `json:"by_location,omitempty"`
	Count      int                  `json:"count"`
}

func (s *Set[T]) put(loc label.Location, v T) {
	if s.ByLocation == nil {
		s.ByLocation = make(map[label.Location]T)
	}
	s.ByLocation[loc] = v
}

// PartResult is the comparison for one side of the exchange.
type PartResult struct {
	Sample            Set[[]string]                     `json:"sample"`
	Matched           Set[[]detection.Content]          `json:"matched"`
	Unmatched         Set[[]string]                     `json:"unmatched"`
	Misidentification Set[detection.LocationDetections] `json:"misidentification"`
	Status            Status                            `json:"status"`
}

// Passed reports whether the part satisfies the pass invariant.
func (r PartResult) Passed() bool {
	return r.Matched.Count == r.Sample.Count && r.Unmatched.Count == 0 && r.Misidentification.Count == 0
}

// ComparisonResult is the verdict for one API label, per part.
type ComparisonResult struct {
	LabelID   string     `json:"id"`
	LabelName string     `json:"name"`
	Request   PartResult `json:"request"`
	Response  PartResult `json:"response"`
	// Unresolved is set when no asset or detail could be fetched for the label.
	Unresolved string `json:"unresolved,omitempty"`
}

// Part returns the result for one side.
func (r ComparisonResult) Part(p detection.Part) PartResult {
	if p == detection.Response {
		return r.Response
	}
	return r.Request
}

// FileVerdict is the comparison for one uploaded file.
type FileVerdict struct {
	TargetFile        string         `json:"target_file"`
	ExpectedCount     int            `json:"expected_count"`
	MatchedCount      int            `json:"matched_count"`
	Misidentification map[string]int `json:"misidentification"`
	// Missing is set when the backend has no record for the file.
	Missing bool `json:"missing,omitempty"`
}

// Passed reports whether the file matched exactly and nothing else was detected.
func (v FileVerdict) Passed() bool {
	return !v.Missing && v.MatchedCount == v.ExpectedCount && len(v.Misidentification) == 0
}

// FileComparisonResult is the verdict for one file label across extensions.
type FileComparisonResult struct {
	LabelID   string `json:"id"`
	LabelName string `json:"name"`
	// Files holds one verdict per verified file, keyed by lower-case extension.
	Files  map[string][]FileVerdict `json:"files"`
	Status Status                   `json:"status"`
}
