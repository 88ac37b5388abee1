package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// RequestLogEntry records one request made to a fake transport, for
// assertions in unit tests.
type RequestLogEntry struct {
	Endpoint string
	Params   url.Values
}

// MockTransport is an in-memory simulation of the ESIOS API, rich
// enough to exercise cache planning, chunking, and archive downloads
// without the network.
type MockTransport struct {
	mu         sync.Mutex
	indicators map[string]map[int]*Indicator // endpoint name → id → record
	archives   map[int]*Archive
	files      map[string][]byte // download path → raw content

	RequestLog []RequestLogEntry

	// FailStatus, when non-zero, makes every request answer this
	// HTTP status instead of data.
	FailStatus int
}

// NewMockTransport creates an empty fake transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		indicators: map[string]map[int]*Indicator{},
		archives:   map[int]*Archive{},
		files:      map[string][]byte{},
	}
}

// SeedIndicator registers an indicator record under an endpoint
// ("indicators" or "offer_indicators"), values included.
func (t *MockTransport) SeedIndicator(endpoint string, ind Indicator) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indicators[endpoint] == nil {
		t.indicators[endpoint] = map[int]*Indicator{}
	}
	copied := ind
	t.indicators[endpoint][ind.ID] = &copied
}

// AppendValues adds data points to an already seeded indicator.
func (t *MockTransport) AppendValues(endpoint string, id int, values ...Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ind := t.indicators[endpoint][id]; ind != nil {
		ind.Values = append(ind.Values, values...)
	}
}

// SeedArchive registers an archive record and the file bytes served
// from its download URL.
func (t *MockTransport) SeedArchive(a Archive, content []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := a
	t.archives[a.ID] = &copied
	if a.Download != nil {
		t.files[a.Download.URL] = content
	}
}

// RequestsMade returns the number of requests recorded so far.
func (t *MockTransport) RequestsMade() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.RequestLog)
}

// Reset clears the request log but keeps seeded data.
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RequestLog = nil
}

func (t *MockTransport) record(endpoint string, params url.Values) {
	copied := url.Values{}
	for k, vs := range params {
		copied[k] = append([]string(nil), vs...)
	}
	t.RequestLog = append(t.RequestLog, RequestLogEntry{Endpoint: endpoint, Params: copied})
}

// Get implements Transport against the seeded data.
func (t *MockTransport) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(endpoint, params)

	if t.FailStatus != 0 {
		if t.FailStatus == 401 || t.FailStatus == 403 {
			return nil, &AuthError{Status: t.FailStatus}
		}
		return nil, &APIError{Status: t.FailStatus}
	}

	parts := strings.SplitN(endpoint, "/", 2)
	resource := parts[0]

	switch resource {
	case "indicators", "offer_indicators":
		if len(parts) == 1 {
			return t.listIndicators(resource)
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, &APIError{Status: 404, Message: "bad indicator id"}
		}
		return t.getIndicator(resource, id, params)
	case "archives":
		if len(parts) == 1 {
			return t.listArchives()
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, &APIError{Status: 404, Message: "bad archive id"}
		}
		return t.getArchive(id)
	}
	return nil, &APIError{Status: 404, Message: fmt.Sprintf("unknown endpoint %q", endpoint)}
}

// Download implements Transport against seeded file content.
func (t *MockTransport) Download(ctx context.Context, path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(path, nil)

	if t.FailStatus != 0 {
		return nil, &APIError{Status: t.FailStatus}
	}
	content, ok := t.files[path]
	if !ok {
		return nil, &APIError{Status: 404, Message: "no such file"}
	}
	return content, nil
}

func (t *MockTransport) listIndicators(endpoint string) ([]byte, error) {
	resp := IndicatorsResponse{}
	for _, ind := range t.indicators[endpoint] {
		meta := *ind
		meta.Values = nil
		resp.Indicators = append(resp.Indicators, meta)
	}
	return json.Marshal(resp)
}

func (t *MockTransport) getIndicator(endpoint string, id int, params url.Values) ([]byte, error) {
	ind, ok := t.indicators[endpoint][id]
	if !ok {
		return nil, &APIError{Status: 404, Message: fmt.Sprintf("indicator %d not found", id)}
	}

	result := *ind
	start, hasStart := parseMockTime(params.Get("start_date"))
	end, hasEnd := parseMockTime(params.Get("end_date"))
	if !hasStart && !hasEnd {
		// Metadata request: no values.
		result.Values = nil
	} else {
		var filtered []Value
		for _, v := range ind.Values {
			vt, err := v.Time()
			if err != nil {
				continue
			}
			if hasStart && vt.Before(start) {
				continue
			}
			if hasEnd && vt.After(end) {
				continue
			}
			filtered = append(filtered, v)
		}
		result.Values = filtered
	}
	return json.Marshal(IndicatorResponse{Indicator: result})
}

func (t *MockTransport) listArchives() ([]byte, error) {
	resp := ArchivesResponse{}
	for _, a := range t.archives {
		resp.Archives = append(resp.Archives, *a)
	}
	return json.Marshal(resp)
}

func (t *MockTransport) getArchive(id int) ([]byte, error) {
	a, ok := t.archives[id]
	if !ok {
		return nil, &APIError{Status: 404, Message: fmt.Sprintf("archive %d not found", id)}
	}
	return json.Marshal(ArchiveResponse{Archive: *a})
}

func parseMockTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
