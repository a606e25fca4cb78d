package verdict

import (
	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// APISummary counts API label verdicts per part.
type APISummary struct {
	Total        int `json:"total"`
	RequestPass  int `json:"request_pass"`
	RequestFail  int `json:"request_fail"`
	RequestMis   int `json:"request_mis"`
	ResponsePass int `json:"response_pass"`
	ResponseFail int `json:"response_fail"`
	ResponseMis  int `json:"response_mis"`
	Unresolved   int `json:"unresolved"`
}

// ExtensionStats counts file verdicts for one extension.
type ExtensionStats struct {
	Pass int `json:"pass"`
	Fail int `json:"fail"`
	Mis  int `json:"mis"`
}

// FileSummary counts file label verdicts.
type FileSummary struct {
	Total      int                       `json:"total"`
	Pass       int                       `json:"pass"`
	Fail       int                       `json:"fail"`
	Extensions map[string]ExtensionStats `json:"extensions"`
}

// SpecificationSummary aggregates every verdict of one specification run.
// It is derived once and never modified afterwards.
type SpecificationSummary struct {
	RunID         string              `json:"run_id"`
	Specification label.Specification `json:"specification"`
	TotalLabels   int                 `json:"total_labels"`
	API           APISummary          `json:"api"`
	File          FileSummary         `json:"file"`
}

// Summarize derives the specification summary from individual results.
func Summarize(runID string, spec label.Specification, totalLabels int, api []ComparisonResult, files []FileComparisonResult) SpecificationSummary {
	s := SpecificationSummary{
		RunID:         runID,
		Specification: spec,
		TotalLabels:   totalLabels,
		API:           APISummary{Total: len(api)},
		File: FileSummary{
			Total:      len(files),
			Extensions: make(map[string]ExtensionStats, len(TrackedExtensions)),
		},
	}

	for _, r := range api {
		if r.Unresolved != "" {
			s.API.Unresolved++
		}
		for _, p := range detection.Parts {
			pr := r.Part(p)
			pass := pr.Status == StatusPass
			mis := pr.Misidentification.Count > 0
			if p == detection.Request {
				s.API.RequestPass += b2i(pass)
				s.API.RequestFail += b2i(!pass)
				s.API.RequestMis += b2i(mis)
			} else {
				s.API.ResponsePass += b2i(pass)
				s.API.ResponseFail += b2i(!pass)
				s.API.ResponseMis += b2i(mis)
			}
		}
	}

	for _, ext := range TrackedExtensions {
		s.File.Extensions[ext] = ExtensionStats{}
	}
	for _, r := range files {
		if r.Status == StatusPass {
			s.File.Pass++
		} else {
			s.File.Fail++
		}
		for ext, verdicts := range r.Files {
			st := s.File.Extensions[ext]
			for _, v := range verdicts {
				if len(v.Misidentification) > 0 {
					st.Mis++
				}
				if !v.Missing && v.ExpectedCount == v.MatchedCount {
					st.Pass++
				} else {
					st.Fail++
				}
			}
			s.File.Extensions[ext] = st
		}
	}

	return s
}

// Fields flattens the summary into the variables visible to the verdict gate.
func (s SpecificationSummary) Fields() map[string]any {
	exts := make(map[string]any, len(s.File.Extensions))
	for ext, st := range s.File.Extensions {
		exts[ext] = map[string]any{"pass": st.Pass, "fail": st.Fail, "mis": st.Mis}
	}
	return map[string]any{
		"specification": s.Specification.Name,
		"total_labels":  s.TotalLabels,
		"api": map[string]any{
			"total":         s.API.Total,
			"request_pass":  s.API.RequestPass,
			"request_fail":  s.API.RequestFail,
			"request_mis":   s.API.RequestMis,
			"response_pass": s.API.ResponsePass,
			"response_fail": s.API.ResponseFail,
			"response_mis":  s.API.ResponseMis,
			"unresolved":    s.API.Unresolved,
		},
		"file": map[string]any{
			"total":      s.File.Total,
			"pass":       s.File.Pass,
			"fail":       s.File.Fail,
			"extensions": exts,
		},
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
