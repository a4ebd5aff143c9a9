package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSummarizeLatencies(t *testing.T) {
	if got := summarizeLatencies(nil); got != (latencySummary{}) {
		t.Errorf("empty input: got %+v", got)
	}

	var latencies []time.Duration
	for i := 100; i >= 1; i-- {
		latencies = append(latencies, time.Duration(i)*time.Millisecond)
	}
	got := summarizeLatencies(latencies)

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"min", got.Min, 1 * time.Millisecond},
		{"max", got.Max, 100 * time.Millisecond},
		{"median", got.Median, 51 * time.Millisecond},
		{"p95", got.P95, 96 * time.Millisecond},
		{"p99", got.P99, 100 * time.Millisecond},
		{"mean", got.Mean, 50500 * time.Microsecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if latencies[0] != 100*time.Millisecond {
		t.Error("summarizeLatencies must not reorder its input")
	}
}

func TestBenchmarkBody(t *testing.T) {
	body, err := benchmarkBody("")
	if err != nil || string(body) != defaultBenchmarkRequest {
		t.Fatalf("default body = %s, %v", body, err)
	}

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "req.yaml")
	if err := os.WriteFile(yamlPath, []byte("consent_state: EXPLICIT\nintended_use: MARKETING\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	body, err = benchmarkBody(yamlPath)
	if err != nil {
		t.Fatalf("benchmarkBody(yaml) error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if got["consent_state"] != "EXPLICIT" || got["intended_use"] != "MARKETING" {
		t.Errorf("got %v", got)
	}

	listPath := filepath.Join(dir, "list.json")
	if err := os.WriteFile(listPath, []byte(`[{},{}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := benchmarkBody(listPath); err == nil {
		t.Error("expected error for a template with two requests")
	}
}

func TestLoadTestRun(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/evaluate" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1)%5 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"decision":"ALLOW"}`))
	}))
	defer srv.Close()

	lt := &loadTest{
		url:         srv.URL + "/v1/evaluate",
		body:        []byte(defaultBenchmarkRequest),
		rate:        100,
		concurrency: 4,
		duration:    300 * time.Millisecond,
		client:      srv.Client(),
	}
	report, err := lt.run(context.Background())
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if report.Requests == 0 {
		t.Fatal("no requests were sent")
	}
	if report.Requests > 40 {
		t.Errorf("rate limit not applied: %d requests in 300ms at 100/s", report.Requests)
	}
	if report.Successful+report.StatusCodes[http.StatusServiceUnavailable]+report.Errors != report.Requests {
		t.Errorf("counts do not add up: %+v", report)
	}
	if report.Latency.Max < report.Latency.Min {
		t.Errorf("latency summary inconsistent: %+v", report.Latency)
	}

	var sb strings.Builder
	report.writeText(&sb)
	if !strings.Contains(sb.String(), "Throughput:") || !strings.Contains(sb.String(), "200:") {
		t.Errorf("text report missing sections:\n%s", sb.String())
	}
}
