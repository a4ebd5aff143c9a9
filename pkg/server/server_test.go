package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/server/middleware"
	"mercator-hq/covenant/pkg/service"
	"mercator-hq/covenant/pkg/telemetry"
	"mercator-hq/covenant/pkg/telemetry/health"
)

var testInstant = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

const allowBody = `{"consent_state":"EXPLICIT","intended_use":"ANALYTICS","sensitivity_level":"LOW","transfer":false,"aggregation":false,"timestamp":"2026-01-01T00:00:00Z"}`

type sink struct {
	mu      sync.Mutex
	records []*evidence.Record
}

func (s *sink) Record(_ context.Context, r *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

type failingPinger struct{ evidence.Storage }

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type fixture struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	sink   *sink
	store  *storage.MemoryStorage
	server *Server
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Evaluator.MaxBatchSize = 3
	if mutate != nil {
		mutate(cfg)
	}

	tel, err := telemetry.New(&cfg.Telemetry, health.NewVersionInfo("1.2.3", "abc123", "2026-01-01"), io.Discard)
	if err != nil {
		t.Fatalf("telemetry.New() error = %v", err)
	}

	f := &fixture{cfg: cfg, tel: tel, sink: &sink{}, store: storage.NewMemoryStorage()}
	svc := service.New(
		service.WithEvaluator(consent.NewEvaluator(consent.WithClock(consent.FixedClock(testInstant)))),
		service.WithEvidence(f.sink),
		service.WithMetrics(tel.Metrics),
		service.WithLimits(cfg.Evaluator),
	)
	f.server = New(cfg, svc, tel, WithEvidence(f.store), WithNow(func() time.Time { return testInstant }))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		decision consent.Decision
		reason   string
	}{
		{"scored allow", allowBody, consent.DecisionAllow, ""},
		{"prohibited is still 200", strings.Replace(allowBody, "EXPLICIT", "PROHIBITED", 1), consent.DecisionDeny, "prohibited_consent"},
		{"missing field is still 200", `{"consent_state":"EXPLICIT"}`, consent.DecisionDeny, "missing_field"},
		{"unknown state escalates", strings.Replace(allowBody, "EXPLICIT", "VERBAL", 1), consent.DecisionEscalate, "unknown_consent_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			w := f.do(t, http.MethodPost, "/v1/evaluate", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			result, err := consent.DecodeResult(w.Body.Bytes())
			if err != nil {
				t.Fatalf("DecodeResult() error = %v", err)
			}
			if result.Decision() != tt.decision {
				t.Errorf("decision = %s, want %s", result.Decision(), tt.decision)
			}
			if term, ok := result.(*consent.Terminal); ok && term.Reason().String() != tt.reason {
				t.Errorf("reason = %s, want %s", term.Reason(), tt.reason)
			}

			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
			if len(f.sink.records) != 1 {
				t.Fatalf("recorded %d evidence records, want 1", len(f.sink.records))
			}
			rec := f.sink.records[0]
			if got := w.Header().Get(EvidenceIDHeader); got != rec.ID {
				t.Errorf("X-Evidence-ID = %q, want %q", got, rec.ID)
			}
			if rec.Source != evidence.SourceHTTP || rec.RequestID != w.Header().Get(middleware.RequestIDHeader) {
				t.Errorf("record source/request = %q/%q", rec.Source, rec.RequestID)
			}
		})
	}
}

func TestEvaluate_BadBodies(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Server.MaxBodyBytes = 256 })

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty", "", http.StatusBadRequest, middleware.CodeInvalidJSON},
		{"array", "[" + allowBody + "]", http.StatusBadRequest, middleware.CodeInvalidJSON},
		{"scalar", `"hello"`, http.StatusBadRequest, middleware.CodeInvalidJSON},
		{"truncated", `{"consent_state":`, http.StatusBadRequest, middleware.CodeInvalidJSON},
		{"too large", `{"pad":"` + strings.Repeat("x", 300) + `"}`, http.StatusRequestEntityTooLarge, middleware.CodeBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/evaluate", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if code := errorCode(t, w); code != tt.code {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestEvaluateBatch(t *testing.T) {
	f := newFixture(t, nil)

	body := "[" + allowBody + "," +
		strings.Replace(allowBody, `"transfer":false`, `"transfer":true`, 1) + "," +
		strings.Replace(allowBody, `"LOW"`, `"HIGH"`, 1) + "]"
	w := f.do(t, http.MethodPost, "/v1/evaluate/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	want := []consent.Decision{consent.DecisionAllow, consent.DecisionEscalate, consent.DecisionEscalate}
	if len(raw) != len(want) {
		t.Fatalf("got %d results", len(raw))
	}
	for i, msg := range raw {
		r, err := consent.DecodeResult(msg)
		if err != nil {
			t.Fatal(err)
		}
		if r.Decision() != want[i] {
			t.Errorf("result %d = %s, want %s", i, r.Decision(), want[i])
		}
	}

	t.Run("object body rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/evaluate/batch", allowBody)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("over batch limit", func(t *testing.T) {
		big := "[" + strings.Repeat(allowBody+",", 3) + allowBody + "]"
		w := f.do(t, http.MethodPost, "/v1/evaluate/batch", big)
		if w.Code != http.StatusRequestEntityTooLarge || errorCode(t, w) != middleware.CodeBatchTooLarge {
			t.Errorf("status = %d body %s", w.Code, w.Body)
		}
	})
}

func TestVerify(t *testing.T) {
	f := newFixture(t, nil)

	scored := f.do(t, http.MethodPost, "/v1/evaluate", allowBody).Body.String()
	tampered := strings.Replace(scored, `"consent_cost":1`, `"consent_cost":2`, 1)
	terminal := f.do(t, http.MethodPost, "/v1/evaluate", `{}`).Body.String()

	tests := []struct {
		name   string
		body   string
		status int
		valid  bool
	}{
		{"genuine", scored, http.StatusOK, true},
		{"tampered", tampered, http.StatusOK, false},
		{"terminal", terminal, http.StatusUnprocessableEntity, false},
		{"garbage", `nope`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/v1/verify", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body)
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp VerifyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Valid != tt.valid {
				t.Errorf("valid = %v, want %v", resp.Valid, tt.valid)
			}
		})
	}
}

func TestEvidenceQuery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	eval := consent.NewEvaluator(consent.WithClock(consent.FixedClock(testInstant)))
	for i, state := range []string{"EXPLICIT", "PROHIBITED", "IMPLIED"} {
		req, _ := consent.DecodeJSON([]byte(strings.Replace(allowBody, "EXPLICIT", state, 1)))
		rec := evidence.NewRecord(req, eval.Evaluate(req), evidence.Meta{
			Source:      evidence.SourceCLI,
			EvaluatedAt: testInstant.Add(-time.Duration(i) * time.Hour),
		})
		if err := f.store.Store(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{"all", "", http.StatusOK, 3},
		{"by decision", "?decision=deny", http.StatusOK, 1},
		{"relative since", "?since=90m", http.StatusOK, 2},
		{"limit", "?limit=1", http.StatusOK, 1},
		{"bad sort", "?sort_by=color", http.StatusBadRequest, 0},
		{"bad limit", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/v1/evidence"+tt.query, "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body)
			}
			if tt.status != http.StatusOK {
				if code := errorCode(t, w); code != middleware.CodeInvalidQuery {
					t.Errorf("code = %q", code)
				}
				return
			}
			var resp EvidenceResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Count != tt.count || len(resp.Records) != tt.count {
				t.Errorf("count = %d (%d records), want %d", resp.Count, len(resp.Records), tt.count)
			}
		})
	}
}

func TestEvidenceQuery_Disabled(t *testing.T) {
	cfg := config.NewDefault()
	tel, err := telemetry.New(&cfg.Telemetry, health.VersionInfo{}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(cfg, service.New(), tel)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/evidence", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/health", "/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, path, "")
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, body %s", w.Code, w.Body)
			}
		})
	}

	t.Run("readiness fails with storage", func(t *testing.T) {
		cfg := config.NewDefault()
		tel, err := telemetry.New(&cfg.Telemetry, health.VersionInfo{}, io.Discard)
		if err != nil {
			t.Fatal(err)
		}
		srv := New(cfg, service.New(), tel, WithEvidence(failingPinger{storage.NewMemoryStorage()}))

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
		if !strings.Contains(w.Body.String(), "database is locked") {
			t.Errorf("body %s", w.Body)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/v1/evaluate", allowBody)

	w := f.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"covenant_decisions_total", "covenant_http_requests_total", `route="/v1/evaluate"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestRoutingErrors(t *testing.T) {
	f := newFixture(t, nil)

	if w := f.do(t, http.MethodGet, "/v2/nothing", ""); w.Code != http.StatusNotFound || errorCode(t, w) != middleware.CodeNotFound {
		t.Errorf("unknown route: %d %s", w.Code, w.Body)
	}
	if w := f.do(t, http.MethodGet, "/v1/evaluate", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", w.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Server.ListenAddress = "127.0.0.1:0"
		c.Server.ShutdownTimeout = 2 * time.Second
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Start(ctx) }()

	select {
	case <-f.server.Ready():
	case err := <-errCh:
		t.Fatalf("Start() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not bind")
	}

	resp, err := http.Post("http://"+f.server.Addr().String()+"/v1/evaluate", "application/json", strings.NewReader(allowBody))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !f.server.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if f.server.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
