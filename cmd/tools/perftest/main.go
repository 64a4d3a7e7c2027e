// main.go - Load generator for the sitepulse collector.
// Each worker drives a tracker.Tracker like a visitor clicking through a site,
// so payloads carry real visitor and session identity.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"sitepulse/internal/events"
	"sitepulse/internal/tracker"
)

// PerfConfig holds the configuration for the performance test
type PerfConfig struct {
	BaseURL      string
	WebsiteID    string
	Domain       string
	Concurrency  int
	Duration     time.Duration
	EventsPerSec int
	Timeout      time.Duration
	Output       string
}

// Result captures a single delivery
type Result struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

// PerfStats aggregates results; only the collecting goroutine touches it.
type PerfStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	RetryableErrors    int64
	StatusCodes        map[int]int64
	Latencies          []time.Duration
	StartTime          time.Time
	EndTime            time.Time
}

// timedTransport measures every delivery and reports it on results.
type timedTransport struct {
	inner   tracker.Transport
	results chan<- Result
}

func (t *timedTransport) Send(ctx context.Context, payload *events.RawEvent) error {
	start := time.Now()
	err := t.inner.Send(ctx, payload)
	res := Result{Duration: time.Since(start), StatusCode: http.StatusOK, Error: err}

	var delivery *tracker.DeliveryError
	if errors.As(err, &delivery) {
		res.StatusCode = delivery.Status
		res.Error = nil
	} else if err != nil {
		res.StatusCode = 0
	}

	select {
	case t.results <- res:
	case <-ctx.Done():
	}
	return err
}

var journeys = [][]string{
	{"/", "/features", "/pricing"},
	{"/", "/blog", "/blog/article-1"},
	{"/docs", "/docs/getting-started"},
	{"/"},
}

func main() {
	cfg := &PerfConfig{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:3000", "Base URL of the collector")
	flag.StringVar(&cfg.WebsiteID, "site", os.Getenv("SITEPULSE_PERF_WEBSITE_ID"), "Website ID registered on the collector")
	flag.StringVar(&cfg.Domain, "domain", "example.com", "Domain of the website")
	flag.IntVar(&cfg.Concurrency, "c", 10, "Number of concurrent visitors")
	flag.DurationVar(&cfg.Duration, "d", 30*time.Second, "Duration of the test")
	flag.IntVar(&cfg.EventsPerSec, "rate", 0, "Target page loads per second (0 = unlimited)")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Request timeout")
	flag.StringVar(&cfg.Output, "out", "", "Write results as JSON to this file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if cfg.WebsiteID == "" {
		fmt.Fprintln(os.Stderr, "a website id is required: -site <id> (see spctl add-site)")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	testCtx, testCancel := context.WithTimeout(ctx, cfg.Duration)
	defer testCancel()

	fmt.Printf("Starting load test: %d visitors for %v against %s/api/events\n", cfg.Concurrency, cfg.Duration, cfg.BaseURL)

	stats := &PerfStats{StatusCodes: make(map[int]int64), StartTime: time.Now()}
	for res := range runTest(testCtx, cfg, logger) {
		stats.record(res)
	}
	stats.EndTime = time.Now()

	printResults(stats)
	if cfg.Output != "" {
		if err := exportResults(stats, cfg.Output); err != nil {
			fmt.Fprintf(os.Stderr, "failed to export results: %v\n", err)
			os.Exit(1)
		}
	}
}

// runTest starts the visitors and returns the channel their deliveries report on.
func runTest(ctx context.Context, cfg *PerfConfig, logger *slog.Logger) <-chan Result {
	results := make(chan Result, cfg.Concurrency*10)
	var wg sync.WaitGroup

	var interval time.Duration
	if cfg.EventsPerSec > 0 {
		interval = time.Duration(float64(time.Second) * float64(cfg.Concurrency) / float64(cfg.EventsPerSec))
	}

	base := tracker.NewHTTPTransport(cfg.BaseURL)
	base.Client.Timeout = cfg.Timeout
	transport := &timedTransport{inner: base, results: results}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visit(ctx, cfg, transport, interval, logger)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// visit plays journeys as one visitor until ctx ends.
func visit(ctx context.Context, cfg *PerfConfig, transport tracker.Transport, interval time.Duration, logger *slog.Logger) {
	t := tracker.New(tracker.Config{
		WebsiteID:   cfg.WebsiteID,
		Domain:      cfg.Domain,
		Transport:   transport,
		Logger:      logger,
		SendTimeout: cfg.Timeout,
	})
	// Deliveries report on the results channel, which closes once every visitor returns.
	defer t.Flush(context.Background())
	origin := "https://" + cfg.Domain

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for started := false; ; {
		journey := journeys[rand.IntN(len(journeys))]
		for _, path := range journey {
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			if !started {
				t.Start(origin+path, "https://www.google.com/")
				started = true
			} else {
				t.PushState(path)
			}
			if err := t.Flush(ctx); err != nil {
				return
			}
		}
		if rand.IntN(4) == 0 {
			t.Click(&tracker.Anchor{Href: "https://github.com/acme", Text: "GitHub"})
		}
	}
}

func (s *PerfStats) record(res Result) {
	s.TotalRequests++
	s.StatusCodes[res.StatusCode]++
	s.Latencies = append(s.Latencies, res.Duration)

	switch {
	case res.Error == nil && res.StatusCode == http.StatusOK:
		s.SuccessfulRequests++
	case res.StatusCode == http.StatusServiceUnavailable:
		s.FailedRequests++
		s.RetryableErrors++
	default:
		s.FailedRequests++
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

type summary struct {
	Requests          int64         `json:"requests"`
	Successful        int64         `json:"successful"`
	Failed            int64         `json:"failed"`
	Retryable         int64         `json:"retryable"`
	RequestsPerSecond float64       `json:"requestsPerSecond"`
	P50               time.Duration `json:"p50"`
	P90               time.Duration `json:"p90"`
	P99               time.Duration `json:"p99"`
	Max               time.Duration `json:"max"`
	StatusCodes       map[int]int64 `json:"statusCodes"`
}

func (s *PerfStats) summarize() summary {
	sorted := append([]time.Duration(nil), s.Latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	elapsed := s.EndTime.Sub(s.StartTime).Seconds()
	rps := 0.0
	if elapsed > 0 {
		rps = float64(s.TotalRequests) / elapsed
	}
	return summary{
		Requests:          s.TotalRequests,
		Successful:        s.SuccessfulRequests,
		Failed:            s.FailedRequests,
		Retryable:         s.RetryableErrors,
		RequestsPerSecond: rps,
		P50:               percentile(sorted, 0.50),
		P90:               percentile(sorted, 0.90),
		P99:               percentile(sorted, 0.99),
		Max:               percentile(sorted, 1),
		StatusCodes:       s.StatusCodes,
	}
}

// printResults displays the results as an aligned table
func printResults(stats *PerfStats) {
	sum := stats.summarize()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\nMETRIC\tVALUE\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Total Requests\t%d\n", sum.Requests)
	fmt.Fprintf(w, "Successful\t%d\n", sum.Successful)
	fmt.Fprintf(w, "Failed\t%d\n", sum.Failed)
	if sum.Retryable > 0 {
		fmt.Fprintf(w, "Storage Unavailable (503)\t%d\n", sum.Retryable)
	}
	fmt.Fprintf(w, "Requests/sec\t%.2f\n", sum.RequestsPerSecond)
	fmt.Fprintf(w, "p50 / p90 / p99\t%v / %v / %v\n", sum.P50, sum.P90, sum.P99)
	fmt.Fprintf(w, "Max Latency\t%v\n", sum.Max)
	w.Flush()

	if len(sum.StatusCodes) == 0 {
		return
	}
	codes := make([]int, 0, len(sum.StatusCodes))
	var maxCount int64 = 1
	for code, count := range sum.StatusCodes {
		codes = append(codes, code)
		maxCount = max(maxCount, count)
	}
	sort.Ints(codes)

	fmt.Println("\nStatus Code Distribution:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STATUS\tCOUNT\tGRAPH\n")
	for _, code := range codes {
		count := sum.StatusCodes[code]
		label := fmt.Sprint(code)
		if code == 0 {
			label = "error"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", label, count, strings.Repeat("█", int(float64(count)/float64(maxCount)*50)))
	}
	w.Flush()
}

func exportResults(stats *PerfStats, path string) error {
	data, err := json.MarshalIndent(stats.summarize(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
