package detection_test

import (
	"slices"
	"testing"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
)

func TestHit_Weight(t *testing.T) {
	tests := []struct {
		hit  detection.Hit
		want int
	}{
		{detection.Hit{Count: 3}, 3},
		{detection.Hit{Count: 0}, 1},
		{detection.Hit{Count: 0, Contents: []detection.Content{detection.Text("a"), detection.Text("b")}}, 2},
		{detection.Hit{Count: -1}, 1},
	}
	for _, tt := range tests {
		if got := tt.hit.Weight(); got != tt.want {
			t.Errorf("Weight(%+v) = %d, want %d", tt.hit, got, tt.want)
		}
	}
}

func TestLocationDetections_WithoutDoesNotMutate(t *testing.T) {
	d := detection.LocationDetections{
		"phone": {Count: 1},
		"email": {Count: 2},
	}

	rest := d.Without("phone")

	if len(d) != 2 {
		t.Errorf("original modified: %v", d)
	}
	if !slices.Equal(rest.Names(), []string{"email"}) {
		t.Errorf("Without() = %v", rest.Names())
	}
}

func TestPayload_PartNil(t *testing.T) {
	var p *detection.Payload
	if got := p.Part(detection.Request).At(label.Body); got != nil {
		t.Errorf("expected nil detections, got %v", got)
	}
}

func TestPartDetections_SetAt(t *testing.T) {
	var p detection.PartDetections
	for _, loc := range label.Locations {
		p.Set(loc, detection.LocationDetections{string(loc): {Count: 1}})
	}
	for _, loc := range label.Locations {
		if _, ok := p.At(loc)[string(loc)]; !ok {
			t.Errorf("missing detections at %s", loc)
		}
	}
}
