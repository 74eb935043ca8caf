// Command loadtest drives POST /api/v1/score with a fixed set of
// reference/guess pairs and reports throughput, latency percentiles and the
// distribution of returned scores.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type pair struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
}

var pairs = []pair{
	{"the cat sat on the mat", "the cat sat on the rug"},
	{"dog bites man", "man bites dog"},
	{"Write a haiku about autumn leaves falling in a quiet forest", "haiku about autumn leaves in a forest"},
	{"Explain quantum computing using only cooking metaphors", "explain quantum computers with food"},
	{"Describe a sunset from the perspective of a lighthouse keeper", "a lighthouse keeper watching the sunset"},
	{"Create a recipe for happiness using only colors as ingredients", "recipe made of colors"},
	{"Tell a bedtime story about a robot learning to paint", "robot painting story for kids"},
	{"Write a product review for time travel as if it were a kitchen appliance", "review of a time machine"},
}

type runConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
}

type stats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
	scores    map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
		scores:    make(map[int]int64),
	}
}

func (s *stats) record(d time.Duration, status, score int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
	if status == http.StatusOK {
		s.scores[score]++
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the prompted server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	cfg := runConfig{BaseURL: *baseURL, Concurrency: *concurrency, Duration: *duration}

	fmt.Println("=== Prompt Scoring Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Pairs:       %d\n\n", len(pairs))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	s := run(ctx, cfg)
	report(os.Stdout, s, cfg.Duration)
	if s.total.Load() == 0 {
		fmt.Println("\nWARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg runConfig) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	endpoint := cfg.BaseURL + "/api/v1/score"

	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				start := time.Now()
				status, score, err := scoreOnce(ctx, client, endpoint, pairs[i%len(pairs)])
				if ctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), status, score, err)
			}
			return nil
		})
	}
	g.Wait()
	return s
}

func scoreOnce(ctx context.Context, client *http.Client, endpoint string, p pair) (int, int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, 0, nil
	}
	var out struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, 0, fmt.Errorf("decoding score: %w", err)
	}
	return resp.StatusCode, out.Score, nil
}

func report(w io.Writer, s *stats, duration time.Duration) {
	total := s.total.Load()
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", s.success.Load())
	fmt.Fprintf(w, "Errors:          %d\n", s.failed.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.failed.Load())/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.latencies) > 0 {
		latencies := slices.Clone(s.latencies)
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(latencies)))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-3.0f   %s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(s.statuses))
	for code := range s.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.statuses[code])
	}

	if len(s.scores) > 0 {
		fmt.Fprintln(w, "\n=== Scores ===")
		scores := make([]int, 0, len(s.scores))
		for score := range s.scores {
			scores = append(scores, score)
		}
		slices.Sort(scores)
		for _, score := range scores {
			fmt.Fprintf(w, "  %3d: %d\n", score, s.scores[score])
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
