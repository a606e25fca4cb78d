package verdict_test

import (
	"testing"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
)

func TestSummarize(t *testing.T) {
	c := verdict.NewClassifier(verdict.Options{})
	pass := c.Classify(startLineSample(), &detection.Payload{
		Request: detection.PartDetections{
			StartLine: detection.LocationDetections{
				"thisLabel": {Count: 1, Contents: []detection.Content{detection.Text("GET /x")}},
			},
		},
		Response: detection.PartDetections{
			StartLine: detection.LocationDetections{
				"thisLabel": {Count: 1, Contents: []detection.Content{detection.Text("GET /x")}},
				"other":     {Count: 1},
			},
		},
	})
	unresolved := c.Unresolved(startLineSample(), "not found")

	files := []verdict.FileComparisonResult{
		verdict.ClassifyFile(fileSample("a"), []verdict.FileDetection{
			{Path: "s_bankCard.txt", Counts: map[string]int{"bankCard": 1}},
			{Path: "s_bankCard.pdf", Counts: map[string]int{"bankCard": 0, "phone": 1}},
		}),
	}

	spec := label.Specification{ID: 1, Name: "finance"}
	s := verdict.Summarize("run-1", spec, 3, []verdict.ComparisonResult{pass, unresolved}, files)

	if s.API.Total != 2 || s.API.RequestPass != 1 || s.API.RequestFail != 1 {
		t.Errorf("request counts = %+v", s.API)
	}
	if s.API.ResponsePass != 0 || s.API.ResponseFail != 2 || s.API.ResponseMis != 1 {
		t.Errorf("response counts = %+v", s.API)
	}
	if s.API.Unresolved != 1 {
		t.Errorf("unresolved = %d, want 1", s.API.Unresolved)
	}
	if s.File.Total != 1 || s.File.Fail != 1 || s.File.Pass != 0 {
		t.Errorf("file counts = %+v", s.File)
	}
	if st := s.File.Extensions[".txt"]; st.Pass != 1 || st.Fail != 0 {
		t.Errorf(".txt stats = %+v", st)
	}
	if st := s.File.Extensions[".pdf"]; st.Fail != 1 || st.Mis != 1 {
		t.Errorf(".pdf stats = %+v", st)
	}
	if _, ok := s.File.Extensions[".docx"]; !ok {
		t.Error("every tracked extension should be present")
	}
}

func TestSummary_Fields(t *testing.T) {
	s := verdict.Summarize("r", label.Specification{Name: "x"}, 0, nil, nil)
	f := s.Fields()

	api, ok := f["api"].(map[string]any)
	if !ok {
		t.Fatalf("api field has type %T", f["api"])
	}
	if api["request_fail"] != 0 {
		t.Errorf("request_fail = %v", api["request_fail"])
	}
	if f["specification"] != "x" {
		t.Errorf("specification = %v", f["specification"])
	}
}
