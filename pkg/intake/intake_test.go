package intake

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/service"
)

var testInstant = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func testService() *service.Service {
	return service.New(service.WithEvaluator(
		consent.NewEvaluator(consent.WithClock(consent.FixedClock(testInstant))),
	))
}

func testConfig(t *testing.T) config.IntakeConfig {
	t.Helper()
	root := t.TempDir()
	return config.IntakeConfig{
		Enabled:         true,
		Directory:       filepath.Join(root, "inbox"),
		OutboxDirectory: filepath.Join(root, "outbox"),
		Debounce:        20 * time.Millisecond,
		Extensions:      []string{".json", ".yaml", ".yml"},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const allowJSON = `{"consent_state":"EXPLICIT","intended_use":"ANALYTICS","sensitivity_level":"LOW","transfer":false,"aggregation":false,"timestamp":"2026-01-01T00:00:00Z"}`

const listYAML = `- consent_state: EXPLICIT
  intended_use: ANALYTICS
  sensitivity_level: LOW
  transfer: false
  aggregation: false
  timestamp: "2026-01-01T00:00:00Z"
- consent_state: PROHIBITED
  intended_use: ANALYTICS
  sensitivity_level: LOW
  transfer: false
  aggregation: false
  timestamp: "2026-01-01T00:00:00Z"
`

func TestProcessor_Accepts(t *testing.T) {
	p := NewProcessor(config.IntakeConfig{}, testService())

	tests := []struct {
		path string
		want bool
	}{
		{"in/request.json", true},
		{"in/request.YAML", true},
		{"in/request.yml", true},
		{"in/request.txt", false},
		{"in/.hidden.json", false},
		{"in/request.json.result.json", false},
		{"in/noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := p.Accepts(tt.path); got != tt.want {
				t.Errorf("Accepts(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestProcessor_ProcessFile_Single(t *testing.T) {
	cfg := testConfig(t)
	p := NewProcessor(cfg, testService())
	path := writeFile(t, cfg.Directory, "one.json", allowJSON)

	fr, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if fr.DecodeErr != nil {
		t.Fatalf("DecodeErr = %v", fr.DecodeErr)
	}
	if want := filepath.Join(cfg.OutboxDirectory, "one.json.result.json"); fr.Output != want {
		t.Errorf("Output = %q, want %q", fr.Output, want)
	}

	data, err := os.ReadFile(fr.Output)
	if err != nil {
		t.Fatal(err)
	}
	result, err := consent.DecodeResult(data)
	if err != nil {
		t.Fatalf("output is not a single result: %v", err)
	}
	if result.Decision() != consent.DecisionAllow {
		t.Errorf("decision = %s, want ALLOW", result.Decision())
	}
	if !consent.VerifyScored(result) {
		t.Error("written result does not verify")
	}

	if _, err := os.Stat(path); err != nil {
		t.Error("input should stay in place without a processed directory")
	}
}

func TestProcessor_ProcessFile_List(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProcessedDirectory = filepath.Join(t.TempDir(), "done")
	p := NewProcessor(cfg, testService())
	path := writeFile(t, cfg.Directory, "many.yaml", listYAML)

	fr, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if len(fr.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(fr.Results))
	}

	data, err := os.ReadFile(fr.Output)
	if err != nil {
		t.Fatal(err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not an array: %v", err)
	}
	want := []consent.Decision{consent.DecisionAllow, consent.DecisionDeny}
	for i, msg := range raw {
		r, err := consent.DecodeResult(msg)
		if err != nil {
			t.Fatalf("element %d: %v", i, err)
		}
		if r.Decision() != want[i] {
			t.Errorf("element %d decision = %s, want %s", i, r.Decision(), want[i])
		}
	}

	if fr.MovedTo != filepath.Join(cfg.ProcessedDirectory, "many.yaml") {
		t.Errorf("MovedTo = %q", fr.MovedTo)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("input should have been moved")
	}
}

func TestProcessor_ProcessFile_Undecodable(t *testing.T) {
	cfg := testConfig(t)
	p := NewProcessor(cfg, testService(), WithNow(func() time.Time { return testInstant }))
	path := writeFile(t, cfg.Directory, "broken.json", `{"consent_state":`)

	fr, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if fr.DecodeErr == nil {
		t.Fatal("expected DecodeErr")
	}
	if len(fr.Results) != 0 {
		t.Errorf("got %d results for undecodable input", len(fr.Results))
	}

	data, err := os.ReadFile(fr.Output)
	if err != nil {
		t.Fatal(err)
	}
	var rec errorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.File != "broken.json" || rec.Error == "" || !rec.At.Equal(testInstant) {
		t.Errorf("error record = %+v", rec)
	}
}

func TestProcessor_ProcessFile_MissingInput(t *testing.T) {
	cfg := testConfig(t)
	p := NewProcessor(cfg, testService())

	if _, err := p.ProcessFile(context.Background(), filepath.Join(cfg.Directory, "absent.json")); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestDebouncer_CoalescesPerKey(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var a, b atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 5; i++ {
		d.Trigger("a", func() { a.Add(1); wg.Done() })
		time.Sleep(5 * time.Millisecond)
	}
	d.Trigger("b", func() { b.Add(1); wg.Done() })

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not fire")
	}

	time.Sleep(60 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("fired a=%d b=%d, want 1 each", a.Load(), b.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var fired atomic.Bool
	d.Trigger("a", func() { fired.Store(true) })
	d.Stop()
	d.Trigger("b", func() { fired.Store(true) })

	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Error("callback fired after Stop")
	}
}

func TestWatcher_ProcessesBacklogAndNewFiles(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.Directory, "backlog.json", allowJSON)
	writeFile(t, cfg.Directory, "ignored.txt", "not a request")

	w := NewWatcher(cfg, testService())
	processed := make(chan *FileResult, 8)
	w.onProcessed = func(fr *FileResult, err error) {
		if err != nil {
			t.Errorf("process error: %v", err)
			return
		}
		processed <- fr
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	wait := func(name string) {
		t.Helper()
		select {
		case fr := <-processed:
			if filepath.Base(fr.Input) != name {
				t.Errorf("processed %s, want %s", fr.Input, name)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", name)
		}
	}

	wait("backlog.json")

	writeFile(t, cfg.Directory, "fresh.yml", listYAML)
	wait("fresh.yml")

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}

	for _, name := range []string{"backlog.json", "fresh.yml"} {
		if _, err := os.Stat(filepath.Join(cfg.OutboxDirectory, name+".result.json")); err != nil {
			t.Errorf("missing output for %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.OutboxDirectory, "ignored.txt.result.json")); !os.IsNotExist(err) {
		t.Error("non-request file should not be processed")
	}
}
