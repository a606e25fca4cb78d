package verdict

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// TrackedExtensions are the file types whose detections are verified.
var TrackedExtensions = []string{".docx", ".xls", ".xlsx", ".txt", ".pptx", ".pdf", ".csv"}

// IsTracked reports whether a file name has a tracked extension.
func IsTracked(name string) bool {
	return slices.Contains(TrackedExtensions, strings.ToLower(filepath.Ext(name)))
}

// FileDetection is the per-label detection count map the backend reports
// for one uploaded file.
type FileDetection struct {
	Path   string
	Counts map[string]int
	// Missing is set when the backend has no record for the file.
	Missing bool
}

// ClassifyFile compares the detection maps of every file generated for sample.
// Files with untracked extensions are ignored. The label passes only if at
// least one tracked file was verified and every verified file passed.
// Verdicts are grouped by extension; several files may share one.
func ClassifyFile(sample *label.Sample, files []FileDetection) FileComparisonResult {
	res := FileComparisonResult{
		LabelID:   sample.ID,
		LabelName: sample.Name,
		Files:     make(map[string][]FileVerdict),
	}
	expected := len(sample.FileData)
	verified, passed := 0, true

	for _, f := range files {
		if !IsTracked(f.Path) {
			continue
		}
		v := FileVerdict{
			TargetFile:        filepath.Base(f.Path),
			ExpectedCount:     expected,
			MatchedCount:      f.Counts[sample.Name],
			Misidentification: make(map[string]int),
			Missing:           f.Missing,
		}
		for name, n := range f.Counts {
			if name != sample.Name {
				v.Misidentification[name] = n
			}
		}
		if !v.Passed() {
			passed = false
		}
		verified++
		ext := strings.ToLower(filepath.Ext(f.Path))
		res.Files[ext] = append(res.Files[ext], v)
	}

	res.Status = StatusFailed
	if verified > 0 && passed {
		res.Status = StatusPass
	}
	return res
}
