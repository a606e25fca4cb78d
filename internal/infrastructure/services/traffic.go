package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/transport"
)

// TrafficPathPrefix is the target server route API samples are sent to.
const TrafficPathPrefix = "/data_label_test/"

// DefaultCopiesPerLabel is how many identical requests are sent per label.
const DefaultCopiesPerLabel = 5

// TrafficPath is the request path for one label.
func TrafficPath(labelID string) string {
	return TrafficPathPrefix + labelID
}

// AssetAPI is the API identifier the backend records for a label's traffic
// sent through proxy (host:port, no scheme).
func AssetAPI(proxy, labelID string) string {
	return strings.TrimSuffix(proxy, "/") + TrafficPath(labelID)
}

// TrafficBody encodes the field samples of s as the JSON request body.
// Fragments are written verbatim, without HTML escaping.
func TrafficBody(s *label.Sample) ([]byte, error) {
	fields := make([]label.RequestFieldSample, len(s.Body))
	for i, f := range s.Body {
		fields[i] = label.RequestFieldSample{
			StartLine: nonNil(f.StartLine),
			Headers:   nonNil(f.Headers),
			Body:      nonNil(f.Body),
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("encode traffic for label %s: %w", s.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// BuildAPITraffic expands samples into copies POST requests each, grouped
// by label in sample order.
func BuildAPITraffic(samples []*label.Sample, copies int) ([]transport.RequestSpec, error) {
	if copies < 1 {
		copies = DefaultCopiesPerLabel
	}
	specs := make([]transport.RequestSpec, 0, len(samples)*copies)
	for _, s := range samples {
		body, err := TrafficBody(s)
		if err != nil {
			return nil, err
		}
		for range copies {
			specs = append(specs, transport.RequestSpec{
				Method: http.MethodPost,
				Path:   TrafficPath(s.ID),
				Body:   body,
			})
		}
	}
	return specs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
