package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultDuration = 30 * time.Second
	pollInterval    = 2 * time.Second // How often to print progress while the run is live
)

type Config struct {
	BaseURL     string
	TraceIDs    []string      // Trace IDs to query, round-robin
	Duration    time.Duration // How long to run (0 = until interrupted)
	Concurrency int           // Number of concurrent workers
	Timeout     time.Duration // Per-request timeout
	OutputFile  string        // Output markdown file path (optional)
	Debug       bool
}

type RunStats struct {
	Started     time.Time
	Finished    time.Time
	Total       int
	Succeeded   int
	NotFound    int
	Failed      int // Transport errors and non-200/404 responses
	ByStatus    map[int]int
	Latencies   []time.Duration
	Interrupted bool
}

type requestResult struct {
	latency    time.Duration
	statusCode int
	err        error
}

func main() {
	cfg := parseFlags()

	if len(cfg.TraceIDs) == 0 {
		fmt.Println("Error: at least one trace id is required (-traces)")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if cfg.Duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, cfg.Duration)
		defer timeoutCancel()
	}

	fmt.Printf("Benchmarking %s\n", cfg.BaseURL)
	fmt.Printf("Traces: %d, concurrency: %d, duration: %s\n\n", len(cfg.TraceIDs), cfg.Concurrency, formatDuration(cfg.Duration))

	stats := runBenchmark(ctx, cfg)

	fmt.Println("\n" + strings.Repeat("=", 80))
	if stats.Interrupted {
		fmt.Println("INTERRUPTED - PARTIAL RESULTS")
	} else {
		fmt.Println("BENCHMARK COMPLETE")
	}
	fmt.Println(strings.Repeat("=", 80))
	printRunStats(stats)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg, stats); err != nil {
			fmt.Printf("Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nReport written to %s\n", cfg.OutputFile)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	var traces string
	var durationStr string

	flag.StringVar(&cfg.BaseURL, "base-url", "", "Base URL of the API server")
	flag.StringVar(&traces, "traces", "", "Comma-separated trace IDs to query")
	flag.StringVar(&durationStr, "duration", defaultDuration.String(), "How long to run (0 = until interrupted)")
	flag.IntVar(&cfg.Concurrency, "concurrency", 10, "Number of concurrent workers")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.OutputFile, "output", "", "Output markdown file path (optional)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Print every failed request")
	flag.Parse()

	// Flag > config file > default
	if cfg.BaseURL == "" {
		if fileCfg, err := LoadConfig(GetDefaultConfigPath()); err == nil && fileCfg.BaseURL != "" {
			cfg.BaseURL = fileCfg.BaseURL
		} else {
			cfg.BaseURL = defaultBaseURL
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	for _, id := range strings.Split(traces, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.TraceIDs = append(cfg.TraceIDs, id)
		}
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		fmt.Printf("Error: invalid duration %q\n", durationStr)
		os.Exit(1)
	}
	cfg.Duration = d

	return cfg
}

func runBenchmark(ctx context.Context, cfg *Config) *RunStats {
	stats := &RunStats{
		Started:  time.Now(),
		ByStatus: make(map[int]int),
	}

	client := &http.Client{Timeout: cfg.Timeout}
	results := make(chan requestResult, cfg.Concurrency)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := offset; ; i++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				traceID := cfg.TraceIDs[i%len(cfg.TraceIDs)]
				results <- fetchTrace(ctx, client, cfg.BaseURL, traceID)
			}
		}(w)
	}

	// Close the results channel once all workers have drained
	go func() {
		wg.Wait()
		close(results)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-results:
			if !ok {
				stats.Finished = time.Now()
				stats.Interrupted = ctx.Err() == context.Canceled
				return stats
			}
			stats.Total++
			stats.Latencies = append(stats.Latencies, r.latency)
			switch {
			case r.err != nil:
				stats.Failed++
				if cfg.Debug {
					fmt.Printf("request error: %v\n", r.err)
				}
			case r.statusCode == http.StatusOK:
				stats.Succeeded++
				stats.ByStatus[r.statusCode]++
			case r.statusCode == http.StatusNotFound:
				stats.NotFound++
				stats.ByStatus[r.statusCode]++
			default:
				stats.Failed++
				stats.ByStatus[r.statusCode]++
				if cfg.Debug {
					fmt.Printf("unexpected status: %d\n", r.statusCode)
				}
			}

		case <-ticker.C:
			elapsed := time.Since(stats.Started)
			fmt.Printf("\r%d requests, %s, %s errors   ",
				stats.Total, formatRate(stats.Total, elapsed), percentageString(stats.Failed, stats.Total))
		}
	}
}

func fetchTrace(ctx context.Context, client *http.Client, baseURL, traceID string) requestResult {
	url := fmt.Sprintf("%s/api/v1/traces/%s", baseURL, traceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return requestResult{err: err}
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return requestResult{latency: latency, err: err}
	}
	defer resp.Body.Close()

	return requestResult{latency: latency, statusCode: resp.StatusCode}
}

// percentile returns the p-th percentile of the given latencies.
// The slice is sorted in place.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	idx := int(float64(len(latencies)-1) * p / 100)
	return latencies[idx]
}

func printRunStats(stats *RunStats) {
	elapsed := stats.Finished.Sub(stats.Started)

	fmt.Printf("\n%s Overall\n", statusEmoji(stats.Succeeded, stats.Failed, 0))
	fmt.Printf("  Duration:   %s\n", formatDuration(elapsed))
	fmt.Printf("  Requests:   %d (%s)\n", stats.Total, formatRate(stats.Total, elapsed))
	fmt.Printf("  Succeeded:  %d (%s)\n", stats.Succeeded, percentageString(stats.Succeeded, stats.Total))
	fmt.Printf("  Not found:  %d\n", stats.NotFound)
	fmt.Printf("  Failed:     %d (%s)\n", stats.Failed, percentageString(stats.Failed, stats.Total))

	if len(stats.ByStatus) > 0 {
		fmt.Println("\n  Status codes:")
		codes := make([]int, 0, len(stats.ByStatus))
		for code := range stats.ByStatus {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("    %d: %d\n", code, stats.ByStatus[code])
		}
	}

	if len(stats.Latencies) > 0 {
		fmt.Println("\n  Latency:")
		fmt.Printf("    p50: %s\n", formatDuration(percentile(stats.Latencies, 50)))
		fmt.Printf("    p90: %s\n", formatDuration(percentile(stats.Latencies, 90)))
		fmt.Printf("    p99: %s\n", formatDuration(percentile(stats.Latencies, 99)))
		fmt.Printf("    max: %s\n", formatDuration(percentile(stats.Latencies, 100)))
	}
}

func writeMarkdownReport(cfg *Config, stats *RunStats) error {
	elapsed := stats.Finished.Sub(stats.Started)

	var b strings.Builder
	b.WriteString("# Trace API Benchmark\n\n")
	fmt.Fprintf(&b, "- Target: `%s`\n", cfg.BaseURL)
	fmt.Fprintf(&b, "- Started: %s\n", stats.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", formatDuration(elapsed))
	fmt.Fprintf(&b, "- Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(&b, "- Traces: %d\n\n", len(cfg.TraceIDs))

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Requests | %d |\n", stats.Total)
	fmt.Fprintf(&b, "| Throughput | %s |\n", formatRate(stats.Total, elapsed))
	fmt.Fprintf(&b, "| Succeeded | %d (%s) |\n", stats.Succeeded, percentageString(stats.Succeeded, stats.Total))
	fmt.Fprintf(&b, "| Not found | %d |\n", stats.NotFound)
	fmt.Fprintf(&b, "| Failed | %d (%s) |\n", stats.Failed, percentageString(stats.Failed, stats.Total))
	fmt.Fprintf(&b, "| p50 | %s |\n", formatDuration(percentile(stats.Latencies, 50)))
	fmt.Fprintf(&b, "| p90 | %s |\n", formatDuration(percentile(stats.Latencies, 90)))
	fmt.Fprintf(&b, "| p99 | %s |\n", formatDuration(percentile(stats.Latencies, 99)))

	return os.WriteFile(cfg.OutputFile, []byte(b.String()), 0644)
}
