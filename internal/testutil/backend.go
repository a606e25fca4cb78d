package testutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// RawLabel is one detected label as the backend reports it in a call record.
type RawLabel struct {
	Name     string
	Count    int
	Contents []string
	// RawContents, when set, is sent instead of Contents, so entries of any
	// JSON shape can be served.
	RawContents []any
}

func (l RawLabel) MarshalJSON() ([]byte, error) {
	var contents any = l.Contents
	if l.RawContents != nil {
		contents = l.RawContents
	}
	return json.Marshal(map[string]any{"name": l.Name, "count": l.Count, "contents": contents})
}

// RawCall is the label section of one recorded call, keyed by location.
type RawCall struct {
	StorageState int
	Request      map[string][]RawLabel
	Response     map[string][]RawLabel
}

// FakeBackend is an in-memory stand-in for the backend management API.
type FakeBackend struct {
	mu sync.Mutex

	// Token, when set, is required in the token header of every call.
	Token string
	// InitCode is the envelope code of the initial rules call (default 200).
	InitCode int
	// InitPolls is how many progress polls report unfinished before finishing.
	InitPolls int
	// FileAssetCount is the number of stored file assets reported by the count query.
	FileAssetCount int
	// APIAssets maps an api path to its asset id.
	APIAssets map[string]int
	// Calls maps an asset id to its latest call detections.
	Calls map[int]RawCall
	// FileAssets maps a file name to its asset id.
	FileAssets map[string]int
	// FileMD5s, when set for a name, must match the md5 filter.
	FileMD5s map[string]string
	// Ranks maps a file asset id to detections per label.
	Ranks map[int]map[string]int

	progressPolls int
	autoMerge     *bool
	hits          map[string]int
}

// Handler returns the HTTP handler serving the fake API.
func (b *FakeBackend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.auth)
	r.Post("/apione/v2/initial/rules", b.initialRules)
	r.Get("/apione/v2/initial/progress", b.progress)
	r.Put("/apione/v2/merger/auto-merge-config/update", b.autoMergeUpdate)
	r.Post("/apione/v2/file-assets", b.fileAssets)
	r.Post("/apione/v2/assets/list", b.assetsList)
	r.Get("/apione/v2/assets/{id}/detail", b.assetDetail)
	r.Get("/apione/v2/call/records/{id}/unmask", b.unmask)
	r.Get("/apione/v2/file-assets/{id}/data-count/rank", b.rank)
	return r
}

// Hits returns how many times the route with the given chi pattern was served.
func (b *FakeBackend) Hits(pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[pattern]
}

// AutoMerge returns the last auto-merge setting received, or nil.
func (b *FakeBackend) AutoMerge() *bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoMerge
}

func (b *FakeBackend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		token := b.Token
		b.mu.Unlock()
		if token != "" && r.Header.Get("token") != token {
			writeEnvelope(w, 401, "invalid token", nil)
			return
		}
		next.ServeHTTP(w, r)
		b.mu.Lock()
		if b.hits == nil {
			b.hits = make(map[string]int)
		}
		b.hits[chi.RouteContext(r.Context()).RoutePattern()]++
		b.mu.Unlock()
	})
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": message, "data": data})
}

func (b *FakeBackend) initialRules(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	code := b.InitCode
	b.mu.Unlock()
	if code == 0 {
		code = 200
	}
	writeEnvelope(w, code, "initialization rejected", nil)
}

func (b *FakeBackend) progress(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.progressPolls++
	done := b.progressPolls > b.InitPolls
	b.mu.Unlock()
	writeEnvelope(w, 200, "ok", map[string]any{"finish_tag": done})
}

func (b *FakeBackend) autoMergeUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TurnOn bool `json:"turn_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, 400, err.Error(), nil)
		return
	}
	b.mu.Lock()
	b.autoMerge = &body.TurnOn
	b.mu.Unlock()
	writeEnvelope(w, 200, "ok", nil)
}

func (b *FakeBackend) fileAssets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		MD5  string `json:"md5"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, 400, err.Error(), nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if body.Name == "" {
		writeEnvelope(w, 200, "ok", map[string]any{"row_count": b.FileAssetCount, "results": []any{}})
		return
	}
	results := []any{}
	if id, ok := b.FileAssets[body.Name]; ok {
		if want, has := b.FileMD5s[body.Name]; !has || want == body.MD5 {
			results = append(results, map[string]any{"id": id, "name": body.Name, "md5": body.MD5})
		}
	}
	writeEnvelope(w, 200, "ok", map[string]any{"row_count": len(results), "results": results})
}

func (b *FakeBackend) assetsList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		API string `json:"api"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, 400, err.Error(), nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	results := []any{}
	if id, ok := b.APIAssets[body.API]; ok {
		results = append(results, map[string]any{"id": id, "http_path": body.API})
	}
	writeEnvelope(w, 200, "ok", map[string]any{"results": results})
}

func (b *FakeBackend) assetDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	_, ok := b.Calls[id]
	b.mu.Unlock()
	if !ok {
		writeEnvelope(w, 404, "asset not found", nil)
		return
	}
	writeEnvelope(w, 200, "ok", map[string]any{
		"latest_request_id":  id * 1000,
		"latest_storage_key": "sk-" + strconv.Itoa(id),
	})
}

func (b *FakeBackend) unmask(w http.ResponseWriter, r *http.Request) {
	reqID, _ := strconv.Atoi(chi.URLParam(r, "id"))
	id := reqID / 1000
	if r.URL.Query().Get("storage_key") != "sk-"+strconv.Itoa(id) {
		writeEnvelope(w, 400, "bad storage key", nil)
		return
	}
	b.mu.Lock()
	call, ok := b.Calls[id]
	b.mu.Unlock()
	if !ok {
		writeEnvelope(w, 404, "record not found", nil)
		return
	}
	writeEnvelope(w, 200, "ok", map[string]any{
		"storage_state": call.StorageState,
		"request":       map[string]any{"label": call.Request},
		"response":      map[string]any{"label": call.Response},
	})
}

func (b *FakeBackend) rank(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	b.mu.Lock()
	counts := b.Ranks[id]
	b.mu.Unlock()

	results := make([]map[string]any, 0, len(counts))
	for name, n := range counts {
		results = append(results, map[string]any{"data_label": name, "data_count": n})
	}
	writeEnvelope(w, 200, "ok", map[string]any{"results": results})
}
