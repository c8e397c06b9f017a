package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL    = flag.String("api-url", "http://localhost:3001", "webparser API base URL")
	apiKey    = flag.String("api-key", "", "API key sent as X-API-Key")
	runs      = flag.Int("runs", 3, "Number of runs per target")
	output    = flag.String("output", "benchmark-results.json", "JSON output file path")
	urlList   = flag.String("urls", "", "Comma-separated page URLs (default: built-in set)")
	content   = flag.Bool("content", false, "Request Markdown content with each parse")
	trackList = flag.String("track", "", "Comma-separated tracking numbers to benchmark /api/track")
)

// defaultPages mixes server-rendered pages with client-rendered apps so both
// classifier outcomes are exercised.
var defaultPages = []string{
	"https://example.com",
	"https://go.dev/blog/go1.21",
	"https://go.dev/doc/effective_go",
	"https://www.bbc.com/news",
	"https://react.dev",
}

// pageResult mirrors the /api/parse fields the benchmark inspects.
type pageResult struct {
	Title        string            `json:"title"`
	Meta         map[string]string `json:"meta"`
	Headings     []json.RawMessage `json:"headings"`
	Paragraphs   []string          `json:"paragraphs"`
	Links        []json.RawMessage `json:"links"`
	Images       []json.RawMessage `json:"images"`
	RenderMethod string            `json:"renderMethod"`
	Content      string            `json:"content"`
}

// trackResult mirrors the /api/track fields the benchmark inspects.
type trackResult struct {
	Intercepted *bool `json:"intercepted"`
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage"`
}

// sample is one timed request.
type sample struct {
	Run        int    `json:"run"`
	LatencyMs  int64  `json:"latency_ms"`
	HTTPStatus int    `json:"http_status"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`

	// parse only
	RenderMethod string `json:"render_method,omitempty"`
	MetaTags     int    `json:"meta_tags,omitempty"`
	Headings     int    `json:"headings,omitempty"`
	Paragraphs   int    `json:"paragraphs,omitempty"`
	Links        int    `json:"links,omitempty"`
	Images       int    `json:"images,omitempty"`
	ContentBytes int    `json:"content_bytes,omitempty"`

	// track only
	Intercepted bool `json:"intercepted,omitempty"`
}

type latency struct {
	MinMs int64   `json:"min_ms"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs int64   `json:"max_ms"`
}

type target struct {
	Endpoint string   `json:"endpoint"`
	Input    string   `json:"input"`
	Samples  []sample `json:"samples"`
	Latency  *latency `json:"latency,omitempty"`

	// Methods counts render methods across successful parse runs. More than
	// one key means the classifier flipped between runs.
	Methods map[string]int `json:"methods,omitempty"`
}

type report struct {
	Timestamp  string   `json:"timestamp"`
	APIURL     string   `json:"api_url"`
	RunsPerURL int      `json:"runs_per_target"`
	Targets    []target `json:"targets"`
}

func main() {
	flag.Parse()

	pages := defaultPages
	if *urlList != "" {
		pages = splitList(*urlList)
	}
	ids := splitList(*trackList)

	fmt.Println("=== webparser benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs:      %d per target\n", *runs)
	fmt.Printf("Targets:   %d pages, %d tracking numbers\n", len(pages), len(ids))
	fmt.Println()

	client := &http.Client{Timeout: 3 * time.Minute}
	if err := checkHealth(client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Start the server first: go run ./cmd/webparser\n")
		os.Exit(1)
	}

	rep := report{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, u := range pages {
		body := map[string]any{"url": u, "include_content": *content}
		rep.Targets = append(rep.Targets, runTarget(client, "/api/parse", u, body, parseSample))
	}
	for _, id := range ids {
		body := map[string]any{"tracking_id": id}
		rep.Targets = append(rep.Targets, runTarget(client, "/api/track", id, body, trackSample))
	}

	printSummary(rep.Targets)

	if err := writeJSON(*output, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func runTarget(client *http.Client, endpoint, input string, body any, fill func(*sample, []byte) error) target {
	fmt.Printf("%s %s\n", endpoint, input)
	tg := target{Endpoint: endpoint, Input: input}

	for i := 1; i <= *runs; i++ {
		s := timedPost(client, endpoint, body, fill)
		s.Run = i
		if s.OK {
			fmt.Printf("  run %d: %5dms  %s\n", i, s.LatencyMs, describe(s, endpoint))
		} else {
			fmt.Printf("  run %d: FAILED %s\n", i, s.Error)
		}
		tg.Samples = append(tg.Samples, s)
	}

	tg.Latency = summarize(tg.Samples)
	if endpoint == "/api/parse" {
		tg.Methods = map[string]int{}
		for _, s := range tg.Samples {
			if s.OK {
				tg.Methods[s.RenderMethod]++
			}
		}
	}
	fmt.Println()
	return tg
}

func timedPost(client *http.Client, endpoint string, payload any, fill func(*sample, []byte) error) sample {
	var s sample

	data, err := json.Marshal(payload)
	if err != nil {
		s.Error = fmt.Sprintf("marshal error: %v", err)
		return s
	}
	req, err := http.NewRequest(http.MethodPost, *apiURL+endpoint, bytes.NewReader(data))
	if err != nil {
		s.Error = fmt.Sprintf("request error: %v", err)
		return s
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.Error = fmt.Sprintf("request failed: %v", err)
		return s
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	s.LatencyMs = time.Since(start).Milliseconds()
	s.HTTPStatus = resp.StatusCode
	if err != nil {
		s.Error = fmt.Sprintf("read error: %v", err)
		return s
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Code != "" {
			s.Error = fmt.Sprintf("[%s/%s] %s", ae.Code, ae.Stage, ae.Error)
		} else {
			s.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return s
	}

	if err := fill(&s, respBody); err != nil {
		s.Error = fmt.Sprintf("decode error: %v", err)
		return s
	}
	s.OK = true
	return s
}

func parseSample(s *sample, body []byte) error {
	var pr pageResult
	if err := json.Unmarshal(body, &pr); err != nil {
		return err
	}
	s.RenderMethod = pr.RenderMethod
	s.MetaTags = len(pr.Meta)
	s.Headings = len(pr.Headings)
	s.Paragraphs = len(pr.Paragraphs)
	s.Links = len(pr.Links)
	s.Images = len(pr.Images)
	s.ContentBytes = len(pr.Content)
	return nil
}

func trackSample(s *sample, body []byte) error {
	var tr trackResult
	if err := json.Unmarshal(body, &tr); err != nil {
		return err
	}
	// Captured payloads carry no "intercepted" key; only misses do.
	s.Intercepted = tr.Intercepted == nil || *tr.Intercepted
	return nil
}

func describe(s sample, endpoint string) string {
	if endpoint == "/api/track" {
		if s.Intercepted {
			return "payload captured"
		}
		return "miss"
	}
	return fmt.Sprintf("%-8s h=%d p=%d links=%d img=%d", s.RenderMethod, s.Headings, s.Paragraphs, s.Links, s.Images)
}

func checkHealth(client *http.Client) error {
	resp, err := client.Get(*apiURL + "/api/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func summarize(samples []sample) *latency {
	var l latency
	n := 0
	for _, s := range samples {
		if !s.OK {
			continue
		}
		if n == 0 || s.LatencyMs < l.MinMs {
			l.MinMs = s.LatencyMs
		}
		if s.LatencyMs > l.MaxMs {
			l.MaxMs = s.LatencyMs
		}
		l.AvgMs += float64(s.LatencyMs)
		n++
	}
	if n == 0 {
		return nil
	}
	l.AvgMs /= float64(n)
	return &l
}

func printSummary(targets []target) {
	fmt.Println(strings.Repeat("─", 90))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Endpoint\tInput\tOK\tMin\tAvg\tMax\tResult\n")

	for _, t := range targets {
		ok := 0
		for _, s := range t.Samples {
			if s.OK {
				ok++
			}
		}
		if t.Latency == nil {
			fmt.Fprintf(w, "%s\t%s\t0/%d\t-\t-\t-\tFAILED\n", t.Endpoint, shorten(t.Input, 40), len(t.Samples))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%dms\t%.0fms\t%dms\t%s\n",
			t.Endpoint, shorten(t.Input, 40), ok, len(t.Samples),
			t.Latency.MinMs, t.Latency.AvgMs, t.Latency.MaxMs, outcome(t))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 90))
}

// outcome is the render method for parse targets (flagged when runs
// disagree) and the capture rate for tracking targets.
func outcome(t target) string {
	if t.Endpoint == "/api/track" {
		captured, ok := 0, 0
		for _, s := range t.Samples {
			if s.OK {
				ok++
				if s.Intercepted {
					captured++
				}
			}
		}
		return fmt.Sprintf("captured %d/%d", captured, ok)
	}

	if len(t.Methods) == 1 {
		for m := range t.Methods {
			return m
		}
	}
	parts := make([]string, 0, len(t.Methods))
	for m, n := range t.Methods {
		parts = append(parts, fmt.Sprintf("%s×%d", m, n))
	}
	return "unstable: " + strings.Join(parts, " ")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, rep report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
