package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sophialabs/labelcheck/internal/domain/detection"
	"github.com/sophialabs/labelcheck/internal/domain/label"
	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

const timeLayout = "2006-01-02 15:04:05"

// Requester issues JSON calls against the backend. *transport.Client satisfies it.
type Requester interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
	PutJSON(ctx context.Context, path string, in, out any) error
}

// Client is a typed client of the backend management API.
type Client struct {
	http   Requester
	logger ports.Logger
}

// New creates a backend Client over http.
func New(http Requester, logger ports.Logger) *Client {
	return &Client{http: http, logger: logger}
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (envelope, error) {
	var env envelope
	if err := c.http.GetJSON(ctx, path, query, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return env, env.check(op)
}

func (c *Client) post(ctx context.Context, op, path string, body any) (envelope, error) {
	var env envelope
	if err := c.http.PostJSON(ctx, path, body, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return env, env.check(op)
}

// InitialRules starts rule initialization for a specification.
func (c *Client) InitialRules(ctx context.Context, specificationID int) error {
	_, err := c.post(ctx, "initial rules", "/apione/v2/initial/rules", map[string]any{
		"specification_name": "",
		"specification":      specificationID,
	})
	return err
}

// InitFinished reports whether rule initialization has completed.
func (c *Client) InitFinished(ctx context.Context) (bool, error) {
	env, err := c.get(ctx, "initial progress", "/apione/v2/initial/progress", nil)
	if err != nil {
		return false, err
	}
	v, _ := env.lookup("$.data.finish_tag")
	return truthy(v), nil
}

// SetAutoMerge enables or disables automatic asset consolidation.
func (c *Client) SetAutoMerge(ctx context.Context, turnOn bool) error {
	var env envelope
	err := c.http.PutJSON(ctx, "/apione/v2/merger/auto-merge-config/update", map[string]any{
		"threshold": 0,
		"turn_on":   turnOn,
	}, &env)
	if err != nil {
		return fmt.Errorf("auto merge config: %w", err)
	}
	if err := env.check("auto merge config"); err != nil {
		return err
	}
	c.logger.Info("auto merge updated", "turn_on", turnOn)
	return nil
}

// FileAssetCount returns the number of file assets the backend has stored.
func (c *Client) FileAssetCount(ctx context.Context) (int, error) {
	const op = "file asset count"
	env, err := c.post(ctx, op, "/apione/v2/file-assets", map[string]any{
		"time_layout": timeLayout,
		"page_num":    1,
		"page_size":   10,
	})
	if err != nil {
		return 0, err
	}
	v, err := env.require(op, "$.data.row_count")
	if err != nil {
		return 0, err
	}
	return asInt(op, "row_count", v)
}

// APIAssetRecord returns the first API asset matching api, or nil when none exists yet.
func (c *Client) APIAssetRecord(ctx context.Context, api string) (*APIAssetRecord, error) {
	const op = "api asset record"
	env, err := c.post(ctx, op, "/apione/v2/assets/list", map[string]any{
		"api":         api,
		"page_num":    1,
		"page_size":   10,
		"time_layout": timeLayout,
	})
	if err != nil {
		return nil, err
	}
	first, ok := env.lookup("$.data.results[0]")
	if !ok {
		return nil, nil
	}
	var rec APIAssetRecord
	if err := decodeInto(op, first, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// APIAssetDetail fetches the detections of the latest call recorded for an API asset.
func (c *Client) APIAssetDetail(ctx context.Context, assetID int) (*detection.Payload, error) {
	const op = "api asset detail"
	env, err := c.get(ctx, op, "/apione/v2/assets/"+strconv.Itoa(assetID)+"/detail", nil)
	if err != nil {
		return nil, err
	}
	reqID, err := env.require(op, "$.data.latest_request_id")
	if err != nil {
		return nil, err
	}
	storageKey, _ := env.lookup("$.data.latest_storage_key")

	const rawOp = "call record"
	raw, err := c.get(ctx, rawOp,
		"/apione/v2/call/records/"+scalarString(reqID)+"/unmask",
		url.Values{"storage_key": {scalarString(storageKey)}})
	if err != nil {
		return nil, err
	}
	return decodePayload(rawOp, raw)
}

// scalarString renders a JSON scalar for use in a URL. Integral numbers never
// use exponent notation.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func decodePayload(op string, env envelope) (*detection.Payload, error) {
	p := &detection.Payload{}
	if v, ok := env.lookup("$.data.storage_state"); ok {
		n, err := asInt(op, "storage_state", v)
		if err != nil {
			return nil, err
		}
		p.StorageState = n
	}
	for _, part := range detection.Parts {
		pd, err := decodePart(op, env, part)
		if err != nil {
			return nil, err
		}
		switch part {
		case detection.Request:
			p.Request = pd
		case detection.Response:
			p.Response = pd
		}
	}
	return p, nil
}

func decodePart(op string, env envelope, part detection.Part) (detection.PartDetections, error) {
	var pd detection.PartDetections
	for _, loc := range label.Locations {
		v, ok := env.lookup(fmt.Sprintf("$.data.%s.label.%s", part, loc))
		if !ok {
			continue
		}
		var items []labelItem
		if err := decodeInto(op, v, &items); err != nil {
			return pd, err
		}
		if len(items) == 0 {
			continue
		}
		d := make(detection.LocationDetections, len(items))
		for _, it := range items {
			// Repeated names at one location are merged.
			h := d[it.Name]
			h.Count += it.Count
			h.Contents = append(h.Contents, it.contents()...)
			d[it.Name] = h
		}
		pd.Set(loc, d)
	}
	return pd, nil
}

// FileAssetRecord returns the file asset with the given name and md5, or nil when none exists yet.
func (c *Client) FileAssetRecord(ctx context.Context, name, md5 string) (*FileAssetRecord, error) {
	const op = "file asset record"
	env, err := c.post(ctx, op, "/apione/v2/file-assets", map[string]any{
		"time_layout": timeLayout,
		"name":        name,
		"md5":         md5,
		"page_num":    1,
		"page_size":   10,
	})
	if err != nil {
		return nil, err
	}
	first, ok := env.lookup("$.data.results[0]")
	if !ok {
		return nil, nil
	}
	var rec FileAssetRecord
	if err := decodeInto(op, first, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FileLabelCounts returns detections per label name for a file asset.
func (c *Client) FileLabelCounts(ctx context.Context, fileID int) (map[string]int, error) {
	const op = "file label counts"
	env, err := c.get(ctx, op, "/apione/v2/file-assets/"+strconv.Itoa(fileID)+"/data-count/rank", url.Values{
		"period":    {"7d"},
		"interval":  {"1d"},
		"page_size": {"10"},
		"page_num":  {"1"},
	})
	if err != nil {
		return nil, err
	}
	v, err := env.require(op, "$.data.results")
	if err != nil {
		return nil, err
	}
	var items []rankItem
	if err := decodeInto(op, v, &items); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it.DataLabel] = it.DataCount
	}
	return counts, nil
}
