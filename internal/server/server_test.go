package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/server"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

const fixture = `REF_AREA,TIME_PERIOD,OBS_VALUE
USA,2019,19
USA,2020,18
DEU,2019,9
DEU,2020,8
FRA,2019,5
ITA,2020,7
ESP,2020,6
GBR,2020,7
POL,2020,9
`

// memStore is an in-memory StateStore.
type memStore struct {
	mu    sync.Mutex
	state map[string]model.Preset
}

func newMemStore() *memStore { return &memStore{state: make(map[string]model.Preset)} }

func (m *memStore) PutState(variant string, p model.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Variant = variant
	m.state[variant] = p
	return nil
}

func (m *memStore) GetState(variant string) (model.Preset, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state[variant]
	return p, ok, nil
}

func controllers(t *testing.T) []*controller.Controller {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return []*controller.Controller{
		controller.New(ds, controller.Standard(), scale.DefaultLayout()),
		controller.New(ds, controller.Progress(), scale.DefaultLayout()),
	}
}

func newServer(t *testing.T, opts server.Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(controllers(t), opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postEvent(t *testing.T, ts *httptest.Server, variant, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/"+variant+"/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func country(code string, checked bool) string {
	b, _ := json.Marshal(server.EventRequest{Type: controller.CheckboxCountry, Code: code, Checked: checked})
	return string(b)
}

// ─── Page / SVG / State ───────────────────────────────────────────────────────

func TestIndexPage(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	page := string(raw)
	for _, want := range []string{`id="panel-standard"`, `id="panel-progress"`, `id="show-total-all"`, `id="standard-chk-USA"`, "<svg", "FRA *"} {
		if !strings.Contains(page, want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestChartSVG(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp, err := http.Get(ts.URL + "/api/black/chart.svg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type: %q", ct)
	}
}

func TestUnknownChart(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp, err := http.Get(ts.URL + "/api/pie/state")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStateEndpoint(t *testing.T) {
	ts := newServer(t, server.Options{})
	postEvent(t, ts, "standard", country("USA", true))

	resp, err := http.Get(ts.URL + "/api/standard/state")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body server.StateBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Variant != "standard" || len(body.Selection.Countries) != 1 || body.Selection.Countries[0] != "USA" {
		t.Errorf("state: %+v", body)
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

func TestEventAccepted(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp := postEvent(t, ts, "standard", country("DEU", true))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body server.EventResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Selection.Countries) != 1 || body.Selection.Countries[0] != "DEU" {
		t.Errorf("selection: %+v", body.Selection)
	}
	if !strings.Contains(body.SVG, ">DEU<") {
		t.Error("svg should carry the DEU label")
	}
	if len(body.Checkboxes) == 0 {
		t.Error("response should list checkboxes")
	}
}

func TestSixthCountryReverts(t *testing.T) {
	ts := newServer(t, server.Options{})
	for _, code := range []string{"USA", "DEU", "FRA", "ITA", "ESP"} {
		if resp := postEvent(t, ts, "standard", country(code, true)); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", code, resp.StatusCode)
		}
	}
	resp := postEvent(t, ts, "standard", country("GBR", true))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var body server.RejectedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Revert || len(body.Selection.Countries) != 5 || body.Error == "" {
		t.Errorf("rejection: %+v", body)
	}
}

func TestTotalsRejectedOnProgress(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp := postEvent(t, ts, "progress", `{"type":"total_all","checked":true}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
}

func TestUnknownCountryEvent(t *testing.T) {
	ts := newServer(t, server.Options{})
	resp := postEvent(t, ts, "standard", country("XXX", true))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMalformedEvents(t *testing.T) {
	ts := newServer(t, server.Options{})
	for _, body := range []string{`{`, `{"type":"bogus"}`, `{"type":"country","checked":true}`} {
		if resp := postEvent(t, ts, "standard", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestEventRateLimited(t *testing.T) {
	ts := newServer(t, server.Options{EventRate: 0.001})
	if resp := postEvent(t, ts, "standard", country("USA", true)); resp.StatusCode != http.StatusOK {
		t.Fatalf("first event: status %d", resp.StatusCode)
	}
	if resp := postEvent(t, ts, "standard", country("DEU", true)); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

// ─── Persistence ──────────────────────────────────────────────────────────────

func TestEventsPersistState(t *testing.T) {
	st := newMemStore()
	ts := newServer(t, server.Options{Store: st})
	postEvent(t, ts, "standard", country("USA", true))

	p, found, _ := st.GetState("standard")
	if !found || len(p.Countries) != 1 || p.Countries[0] != "USA" {
		t.Errorf("saved state: %+v (found=%v)", p, found)
	}
}

func TestResumesSavedState(t *testing.T) {
	st := newMemStore()
	_ = st.PutState("standard", model.Preset{Countries: []string{"DEU", "FRA"}})
	_ = st.PutState("progress", model.Preset{Countries: []string{"NOPE"}})

	ctls := controllers(t)
	server.New(ctls, server.Options{Store: st})
	if got := strings.Join(ctls[0].Selection().Countries, ","); got != "DEU,FRA" {
		t.Errorf("standard should resume DEU,FRA, got %q", got)
	}
	if n := len(ctls[1].Selection().Countries); n != 0 {
		t.Errorf("an invalid saved state should be ignored, got %d countries", n)
	}
}
