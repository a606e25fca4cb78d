package verdict

import (
	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
)

// Options tunes API classification.
type Options struct {
	// LegacyUnmatchedFallback reports the whole expected list as unmatched
	// when every expected fragment was found at a location, which makes a
	// perfect match FAILED. Kept for comparing against older reports.
	LegacyUnmatchedFallback bool
}

// Classifier compares an expected label sample against a detection payload.
// It holds no state between calls.
type Classifier struct {
	opts Options
}

// NewClassifier creates a new Classifier.
func NewClassifier(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Classify runs the comparison independently for the request and response parts.
// payload may be nil, meaning nothing was detected. Inputs are not modified.
func (c *Classifier) Classify(sample *label.Sample, payload *detection.Payload) ComparisonResult {
	return ComparisonResult{
		LabelID:   sample.ID,
		LabelName: sample.Name,
		Request:   c.classifyPart(sample, payload.Part(detection.Request)),
		Response:  c.classifyPart(sample, payload.Part(detection.Response)),
	}
}

// Unresolved builds the result for a label whose asset could not be fetched:
// every expected fragment is unmatched and both parts fail.
func (c *Classifier) Unresolved(sample *label.Sample, reason string) ComparisonResult {
	r := c.Classify(sample, nil)
	r.Unresolved = reason
	r.Request.Status = StatusFailed
	r.Response.Status = StatusFailed
	return r
}

func (c *Classifier) classifyPart(sample *label.Sample, part detection.PartDetections) PartResult {
	var res PartResult

	for _, loc := range label.Locations {
		expected := sample.Expected(loc)
		detections := part.At(loc)

		res.Sample.put(loc, expected)
		res.Sample.Count += len(expected)

		hit, found := detections[sample.Name]
		switch {
		case found:
			res.Matched.put(loc, hit.Contents)
			res.Matched.Count += hit.Count

			missing := missingFragments(expected, hit)
			if len(missing) == 0 && c.opts.LegacyUnmatchedFallback {
				missing = expected
			}
			if len(missing) > 0 {
				res.Unmatched.put(loc, missing)
				res.Unmatched.Count += len(missing)
			}
		case len(expected) > 0:
			res.Unmatched.put(loc, expected)
			res.Unmatched.Count += len(expected)
		}

		foreign := detections.Without(sample.Name)
		if len(foreign) > 0 {
			res.Misidentification.put(loc, foreign)
			for _, h := range foreign {
				res.Misidentification.Count += h.Weight()
			}
		}
	}

	res.Status = StatusFailed
	if res.Passed() {
		res.Status = StatusPass
	}
	return res
}

// missingFragments returns the expected fragments whose normalized form is
// not among the hit's contents, preserving order.
func missingFragments(expected []string, hit detection.Hit) []string {
	var missing []string
	for _, frag := range expected {
		norm, ok := detection.ParseContent(frag)
		if !ok {
			norm = detection.Text(frag)
		}
		if !hit.Contains(norm) {
			missing = append(missing, frag)
		}
	}
	return missing
}
