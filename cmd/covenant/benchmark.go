package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mercator-hq/covenant/pkg/cli"
)

var benchmarkFlags struct {
	target      string
	duration    time.Duration
	rate        int
	concurrency int
	template    string
	output      string
	progress    bool
}

// defaultBenchmarkRequest scores ALLOW_WITH_CONTROLS so every call runs the
// full validator, engine and sealer path.
const defaultBenchmarkRequest = `{"consent_state":"IMPLIED","intended_use":"ANALYTICS","sensitivity_level":"MEDIUM","transfer":false,"aggregation":false,"timestamp":"2026-01-01T00:00:00Z"}`

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Load test a running covenant server",
	Long: `Send evaluation requests to a running server at a fixed rate and
report throughput, latency percentiles and status codes.

Examples:
  # 30 seconds at 10 req/s against a local server
  covenant benchmark --target http://localhost:8080

  # Higher load with a custom request
  covenant benchmark --duration 60s --rate 500 --concurrency 16 --template request.json`,
	Args: cobra.NoArgs,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&benchmarkFlags.target, "target", "http://localhost:8080", "server base URL")
	benchmarkCmd.Flags().DurationVar(&benchmarkFlags.duration, "duration", 30*time.Second, "test duration")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.rate, "rate", 10, "requests per second")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.concurrency, "concurrency", 1, "concurrent clients")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.template, "template", "", "request body file (JSON or YAML request)")
	benchmarkCmd.Flags().StringVarP(&benchmarkFlags.output, "output", "o", "text", "output format: text, json")
	benchmarkCmd.Flags().BoolVar(&benchmarkFlags.progress, "progress", true, "show progress on stderr")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if benchmarkFlags.rate <= 0 || benchmarkFlags.concurrency <= 0 || benchmarkFlags.duration <= 0 {
		return fmt.Errorf("--rate, --concurrency and --duration must be positive")
	}
	format, err := cli.ParseFormat(benchmarkFlags.output)
	if err != nil {
		return err
	}

	body, err := benchmarkBody(benchmarkFlags.template)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	lt := &loadTest{
		url:         strings.TrimRight(benchmarkFlags.target, "/") + "/v1/evaluate",
		body:        body,
		rate:        benchmarkFlags.rate,
		concurrency: benchmarkFlags.concurrency,
		duration:    benchmarkFlags.duration,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	if benchmarkFlags.progress {
		lt.progress = cli.NewProgress(cmd.ErrOrStderr(), "requests")
	}

	report, err := lt.run(ctx)
	if err != nil {
		return cli.NewCommandError("benchmark", err)
	}

	if format == cli.FormatJSON {
		return (&cli.JSONFormatter{Indent: true}).FormatTo(cmd.OutOrStdout(), report)
	}
	report.writeText(cmd.OutOrStdout())
	return nil
}

// benchmarkBody returns the request body, re-encoding a template file as
// JSON so YAML templates work too.
func benchmarkBody(path string) ([]byte, error) {
	if path == "" {
		return []byte(defaultBenchmarkRequest), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	reqs, err := decodeRequests(path, data, "")
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	if len(reqs) != 1 {
		return nil, fmt.Errorf("template must hold exactly one request, got %d", len(reqs))
	}
	return json.Marshal(reqs[0].ToMap())
}

type loadTest struct {
	url         string
	body        []byte
	rate        int
	concurrency int
	duration    time.Duration
	client      *http.Client
	progress    *cli.Progress

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
	errors    int
}

func (lt *loadTest) run(ctx context.Context) (*benchmarkReport, error) {
	lt.statuses = make(map[int]int)
	total := int(lt.duration.Seconds() * float64(lt.rate))
	if lt.progress != nil {
		lt.progress.Start(total)
	}

	ctx, cancel := context.WithTimeout(ctx, lt.duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(lt.rate), 1)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for range lt.concurrency {
		g.Go(func() error {
			for {
				if err := limiter.Wait(gctx); err != nil {
					// Deadline or cancellation ends the run.
					return nil
				}
				lt.send(gctx)
			}
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	if lt.progress != nil {
		lt.progress.Finish()
	}
	return lt.report(elapsed), nil
}

func (lt *loadTest) send(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.url, bytes.NewReader(lt.body))
	if err != nil {
		lt.observe(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := lt.client.Do(req)
	if err != nil {
		// Requests cut off by the end of the run are not failures.
		if ctx.Err() != nil {
			return
		}
		lt.observe(0, 0, err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	lt.observe(resp.StatusCode, time.Since(started), nil)
}

func (lt *loadTest) observe(status int, latency time.Duration, err error) {
	lt.mu.Lock()
	if err != nil {
		lt.errors++
	} else {
		lt.statuses[status]++
		lt.latencies = append(lt.latencies, latency)
	}
	lt.mu.Unlock()

	if lt.progress != nil {
		lt.progress.Increment(err != nil || status != http.StatusOK)
	}
}

func (lt *loadTest) report(elapsed time.Duration) *benchmarkReport {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	r := &benchmarkReport{
		Target:      lt.url,
		Duration:    elapsed,
		Requests:    len(lt.latencies) + lt.errors,
		Errors:      lt.errors,
		StatusCodes: make(map[int]int, len(lt.statuses)),
		Latency:     summarizeLatencies(lt.latencies),
	}
	for code, n := range lt.statuses {
		r.StatusCodes[code] = n
		if code == http.StatusOK {
			r.Successful += n
		}
	}
	if elapsed > 0 {
		r.Throughput = float64(r.Successful) / elapsed.Seconds()
	}
	return r
}

type benchmarkReport struct {
	Target      string         `json:"target"`
	Duration    time.Duration  `json:"duration_ns"`
	Requests    int            `json:"requests"`
	Successful  int            `json:"successful"`
	Errors      int            `json:"errors"`
	Throughput  float64        `json:"throughput_rps"`
	StatusCodes map[int]int    `json:"status_codes"`
	Latency     latencySummary `json:"latency"`
}

type latencySummary struct {
	Min    time.Duration `json:"min_ns"`
	Mean   time.Duration `json:"mean_ns"`
	Median time.Duration `json:"median_ns"`
	P95    time.Duration `json:"p95_ns"`
	P99    time.Duration `json:"p99_ns"`
	Max    time.Duration `json:"max_ns"`
}

func summarizeLatencies(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	n := len(sorted)
	return latencySummary{
		Min:    sorted[0],
		Mean:   sum / time.Duration(n),
		Median: sorted[n/2],
		P95:    sorted[percentileIndex(n, 0.95)],
		P99:    sorted[percentileIndex(n, 0.99)],
		Max:    sorted[n-1],
	}
}

func percentileIndex(n int, p float64) int {
	i := int(float64(n) * p)
	if i >= n {
		i = n - 1
	}
	return i
}

func (r *benchmarkReport) writeText(w io.Writer) {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

	fmt.Fprintf(w, "Target:      %s\n", r.Target)
	fmt.Fprintf(w, "Requests:    %d total, %d successful, %d errors\n", r.Requests, r.Successful, r.Errors)
	fmt.Fprintf(w, "Duration:    %.1fs\n", r.Duration.Seconds())
	fmt.Fprintf(w, "Throughput:  %.2f req/s\n", r.Throughput)

	if r.Requests > r.Errors {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Latency:")
		fmt.Fprintf(w, "  Min:     %.1fms\n", ms(r.Latency.Min))
		fmt.Fprintf(w, "  Mean:    %.1fms\n", ms(r.Latency.Mean))
		fmt.Fprintf(w, "  Median:  %.1fms\n", ms(r.Latency.Median))
		fmt.Fprintf(w, "  p95:     %.1fms\n", ms(r.Latency.P95))
		fmt.Fprintf(w, "  p99:     %.1fms\n", ms(r.Latency.P99))
		fmt.Fprintf(w, "  Max:     %.1fms\n", ms(r.Latency.Max))
	}

	if len(r.StatusCodes) > 0 {
		codes := make([]int, 0, len(r.StatusCodes))
		for code := range r.StatusCodes {
			codes = append(codes, code)
		}
		slices.Sort(codes)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Status Codes:")
		for _, code := range codes {
			n := r.StatusCodes[code]
			fmt.Fprintf(w, "  %d:     %d (%.0f%%)\n", code, n, float64(n)/float64(r.Requests)*100)
		}
	}
}
