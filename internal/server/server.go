// Package server exposes the charts as a small web UI. Each chart variant has
// its own Controller guarded by a mutex, so events for one chart are applied
// one at a time and never interleave. Every accepted event answers with the
// freshly rendered SVG; every rejected event tells the page to revert the
// checkbox that caused it.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/emissions/internal/chart"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/selection"
)

// StateStore persists the last selection per variant. *store.Store
// satisfies it.
type StateStore interface {
	PutState(variant string, p model.Preset) error
	GetState(variant string) (model.Preset, bool, error)
}

// Options configures a Server.
type Options struct {
	EventRate float64    // events per second across all charts; 0 = unlimited
	Store     StateStore // optional
}

type chartState struct {
	mu  sync.Mutex
	ctl *controller.Controller
}

// Server serves the HTML page and the per-chart JSON API.
type Server struct {
	charts  map[string]*chartState
	order   []string
	limiter *rate.Limiter
	store   StateStore
	mux     *http.ServeMux
}

// New builds a Server for ctls. When a store is configured, each chart
// resumes its last saved selection; a saved selection that no longer
// validates is logged and ignored.
func New(ctls []*controller.Controller, opts Options) *Server {
	limit, burst := rate.Inf, 1
	if opts.EventRate > 0 {
		limit = rate.Limit(opts.EventRate)
		if b := int(opts.EventRate); b > burst {
			burst = b
		}
	}
	s := &Server{
		charts:  make(map[string]*chartState),
		limiter: rate.NewLimiter(limit, burst),
		store:   opts.Store,
		mux:     http.NewServeMux(),
	}
	for _, c := range ctls {
		name := c.Variant().Name
		s.charts[name] = &chartState{ctl: c}
		s.order = append(s.order, name)
		s.resume(c)
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/{variant}/chart.svg", s.handleSVG)
	s.mux.HandleFunc("GET /api/{variant}/state", s.handleState)
	s.mux.HandleFunc("POST /api/{variant}/events", s.handleEvent)
	return s
}

func (s *Server) resume(c *controller.Controller) {
	if s.store == nil {
		return
	}
	name := c.Variant().Name
	p, found, err := s.store.GetState(name)
	if err != nil {
		slog.Warn("reading saved selection", "chart", name, "err", err)
		return
	}
	if !found {
		return
	}
	if err := c.ApplyPreset(p); err != nil {
		slog.Warn("ignoring saved selection", "chart", name, "err", err)
	}
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// chartFor resolves the {variant} path value, accepting the same aliases as
// the CLI.
func (s *Server) chartFor(w http.ResponseWriter, r *http.Request) (*chartState, bool) {
	v, err := controller.VariantByName(r.PathValue("variant"))
	if err == nil {
		if c, ok := s.charts[v.Name]; ok {
			return c, true
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown chart %q", r.PathValue("variant"))})
	return nil, false
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chartFor(w, r)
	if !ok {
		return
	}
	c.mu.Lock()
	f := c.ctl.Frame()
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := chart.SVG(&buf, f); err != nil {
		slog.Error("rendering svg", "chart", f.Variant, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(buf.Bytes())
}

// StateBody is the answer of GET /api/{variant}/state.
type StateBody struct {
	Variant    string                `json:"variant"`
	Selection  selection.Snapshot    `json:"selection"`
	Checkboxes []controller.Checkbox `json:"checkboxes"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chartFor(w, r)
	if !ok {
		return
	}
	c.mu.Lock()
	body := StateBody{
		Variant:    c.ctl.Variant().Name,
		Selection:  c.ctl.Selection(),
		Checkboxes: c.ctl.Checkboxes(),
	}
	c.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

// EventRequest is the body of POST /api/{variant}/events.
type EventRequest struct {
	Type    string `json:"type"` // controller.Checkbox* kinds
	Code    string `json:"code,omitempty"`
	Checked bool   `json:"checked"`
}

// Event converts the request into a selection event.
func (e EventRequest) Event() (selection.Event, error) {
	switch e.Type {
	case controller.CheckboxCountry:
		if e.Code == "" {
			return nil, errors.New("country event without code")
		}
		return selection.CountryToggled{Code: e.Code, Checked: e.Checked}, nil
	case controller.CheckboxTotalAll:
		return selection.TotalAllToggled{Checked: e.Checked}, nil
	case controller.CheckboxTotalComplete:
		return selection.TotalCompleteToggled{Checked: e.Checked}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

// EventResponse is the answer to an accepted event.
type EventResponse struct {
	Selection  selection.Snapshot    `json:"selection"`
	Checkboxes []controller.Checkbox `json:"checkboxes"`
	SVG        string                `json:"svg"`
}

// RejectedResponse is the answer to a rejected event. The selection is the
// unchanged state the page should revert to.
type RejectedResponse struct {
	Error     string             `json:"error"`
	Revert    bool               `json:"revert"`
	Selection selection.Snapshot `json:"selection"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := s.chartFor(w, r)
	if !ok {
		return
	}
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many events, slow down"})
		return
	}

	var req EventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("decoding event: %v", err)})
		return
	}
	ev, err := req.Event()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.ctl.Variant().Name
	f, err := c.ctl.OnSelectionChanged(ev)
	if err != nil {
		slog.Info("event rejected", "chart", name, "type", req.Type, "code", req.Code, "err", err)
		status := http.StatusConflict
		if errors.Is(err, controller.ErrUnknownCountry) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, RejectedResponse{Error: err.Error(), Revert: true, Selection: c.ctl.Selection()})
		return
	}

	var buf bytes.Buffer
	if err := chart.SVG(&buf, f); err != nil {
		slog.Error("rendering svg", "chart", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if s.store != nil {
		if err := s.store.PutState(name, c.ctl.Preset("")); err != nil {
			slog.Warn("saving selection", "chart", name, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, EventResponse{
		Selection:  c.ctl.Selection(),
		Checkboxes: c.ctl.Checkboxes(),
		SVG:        buf.String(),
	})
}

// ─── Page ─────────────────────────────────────────────────────────────────────

type pagePanel struct {
	Name       string
	Title      string
	SVG        template.HTML
	Checkboxes []controller.Checkbox
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var panels []pagePanel
	for _, name := range s.order {
		c := s.charts[name]
		c.mu.Lock()
		f := c.ctl.Frame()
		boxes := c.ctl.Checkboxes()
		c.mu.Unlock()

		var buf bytes.Buffer
		if err := chart.SVG(&buf, f); err != nil {
			slog.Error("rendering svg", "chart", name, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		panels = append(panels, pagePanel{
			Name:       name,
			Title:      f.YAxis.Title,
			SVG:        template.HTML(buf.String()),
			Checkboxes: boxes,
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, panels); err != nil {
		slog.Error("rendering page", "err", err)
	}
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Greenhouse Gas Emissions</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #222; }
.panel { display: flex; gap: 24px; margin-bottom: 40px; }
.boxes { min-width: 240px; max-height: 500px; overflow-y: auto; font-size: 14px; }
.boxes label { display: block; }
.boxes .total { font-weight: bold; }
.error { color: #b00; min-height: 1.2em; }
</style>
</head>
<body>
{{range .}}
<section class="panel" id="panel-{{.Name}}" data-variant="{{.Name}}">
  <div class="chart">{{.SVG}}</div>
  <div>
    <h3>{{.Title}}</h3>
    <div class="error"></div>
    <div class="boxes">
    {{range .Checkboxes}}
      <label{{if ne .Kind "country"}} class="total"{{end}}><input type="checkbox" id="{{.ID}}" data-kind="{{.Kind}}" data-code="{{.Code}}"{{if .Checked}} checked{{end}}{{if .Disabled}} disabled{{end}}> {{.Label}}</label>
    {{end}}
    </div>
  </div>
</section>
{{end}}
<script>
document.querySelectorAll(".panel").forEach(function (panel) {
  var variant = panel.dataset.variant;
  var errBox = panel.querySelector(".error");
  function sync(boxes) {
    boxes.forEach(function (b) {
      var el = document.getElementById(b.id);
      if (el) { el.checked = b.checked; el.disabled = b.disabled; }
    });
  }
  panel.querySelectorAll("input[type=checkbox]").forEach(function (box) {
    box.addEventListener("change", function () {
      var checked = box.checked;
      fetch("/api/" + variant + "/events", {
        method: "POST",
        headers: {"Content-Type": "application/json"},
        body: JSON.stringify({type: box.dataset.kind, code: box.dataset.code, checked: checked})
      }).then(function (r) { return r.json(); }).then(function (body) {
        if (body.revert || body.error) {
          box.checked = !checked;
          errBox.textContent = body.error;
          return;
        }
        errBox.textContent = "";
        panel.querySelector(".chart").innerHTML = body.svg;
        sync(body.checkboxes);
      }).catch(function (e) {
        box.checked = !checked;
        errBox.textContent = String(e);
      });
    });
  });
});
</script>
</body>
</html>
`))

// ─── Helpers ──────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "err", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
