package verdict_test

import (
	"testing"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/domain/verdict"
)

func fileSample(values ...string) *label.Sample {
	s := &label.Sample{ID: "F001", Name: "bankCard", Scope: 2}
	for _, v := range values {
		s.FileData = append(s.FileData, label.FileContentSample{Value: v})
	}
	return s
}

func TestClassifyFile_UnderCountFails(t *testing.T) {
	r := verdict.ClassifyFile(fileSample("a", "b"), []verdict.FileDetection{
		{Path: "/data/spec_bankCard.txt", Counts: map[string]int{"bankCard": 1}},
	})

	v := r.Files[".txt"][0]
	if v.ExpectedCount != 2 || v.MatchedCount != 1 {
		t.Errorf("expected/matched = %d/%d, want 2/1", v.ExpectedCount, v.MatchedCount)
	}
	if len(v.Misidentification) != 0 {
		t.Errorf("unexpected misidentification: %v", v.Misidentification)
	}
	if r.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want FAILED", r.Status)
	}
}

func TestClassifyFile_AllExtensionsPass(t *testing.T) {
	var files []verdict.FileDetection
	for _, ext := range verdict.TrackedExtensions {
		files = append(files, verdict.FileDetection{
			Path:   "/data/spec_bankCard" + ext,
			Counts: map[string]int{"bankCard": 2},
		})
	}

	r := verdict.ClassifyFile(fileSample("a", "b"), files)

	if r.Status != verdict.StatusPass {
		t.Errorf("status = %s, want PASS", r.Status)
	}
	if len(r.Files) != len(verdict.TrackedExtensions) {
		t.Errorf("expected %d files, got %d", len(verdict.TrackedExtensions), len(r.Files))
	}
}

func TestClassifyFile_MisidentificationFails(t *testing.T) {
	r := verdict.ClassifyFile(fileSample("a"), []verdict.FileDetection{
		{Path: "x_bankCard.pdf", Counts: map[string]int{"bankCard": 1, "phone": 3}},
	})

	v := r.Files[".pdf"][0]
	if v.Misidentification["phone"] != 3 {
		t.Errorf("misidentification = %v", v.Misidentification)
	}
	if _, ok := v.Misidentification["bankCard"]; ok {
		t.Error("label under test must not be a misidentification")
	}
	if r.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want FAILED", r.Status)
	}
}

func TestClassifyFile_IgnoresUntrackedExtensions(t *testing.T) {
	r := verdict.ClassifyFile(fileSample("a"), []verdict.FileDetection{
		{Path: "x_bankCard.zip", Counts: map[string]int{"phone": 9}},
		{Path: "x_bankCard.CSV", Counts: map[string]int{"bankCard": 1}},
	})

	if _, ok := r.Files[".zip"]; ok {
		t.Error(".zip should be ignored")
	}
	if _, ok := r.Files[".csv"]; !ok {
		t.Error(".CSV should be tracked case-insensitively")
	}
	if r.Status != verdict.StatusPass {
		t.Errorf("status = %s, want PASS", r.Status)
	}
}

func TestClassifyFile_NothingVerifiedFails(t *testing.T) {
	r := verdict.ClassifyFile(fileSample("a"), nil)
	if r.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want FAILED", r.Status)
	}
}

func TestClassifyFile_MissingRecordFails(t *testing.T) {
	r := verdict.ClassifyFile(fileSample(), []verdict.FileDetection{
		{Path: "x_bankCard.docx", Missing: true},
	})
	if r.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want FAILED", r.Status)
	}
}

func TestClassifyFile_SameExtensionKeepsEveryVerdict(t *testing.T) {
	r := verdict.ClassifyFile(fileSample("a", "b"), []verdict.FileDetection{
		{Path: "a_bankCard.txt", Counts: map[string]int{"bankCard": 0, "phone": 5}},
		{Path: "b_bankCard.txt", Counts: map[string]int{"bankCard": 2}},
	})

	txt := r.Files[".txt"]
	if len(txt) != 2 {
		t.Fatalf("expected 2 .txt verdicts, got %+v", txt)
	}
	if txt[0].TargetFile != "a_bankCard.txt" || txt[0].Passed() {
		t.Errorf("first verdict = %+v, want failing a_bankCard.txt", txt[0])
	}
	if !txt[1].Passed() {
		t.Errorf("second verdict = %+v, want pass", txt[1])
	}
	if r.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want FAILED", r.Status)
	}

	s := verdict.Summarize("r", label.Specification{Name: "x"}, 1, nil, []verdict.FileComparisonResult{r})
	if st := s.File.Extensions[".txt"]; st.Pass != 1 || st.Fail != 1 || st.Mis != 1 {
		t.Errorf(".txt stats = %+v, want 1/1/1", st)
	}
}
