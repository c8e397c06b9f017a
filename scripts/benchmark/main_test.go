package main

import "testing"

func TestSummarize_SkipsFailedRuns(t *testing.T) {
	l := summarize([]sample{
		{OK: true, LatencyMs: 300},
		{OK: false, LatencyMs: 5},
		{OK: true, LatencyMs: 100},
	})
	if l == nil || l.MinMs != 100 || l.MaxMs != 300 || l.AvgMs != 200 {
		t.Errorf("summarize = %+v, want 100/200/300", l)
	}
	if summarize([]sample{{OK: false}}) != nil {
		t.Error("all-failed target should have no latency")
	}
}

func TestTrackSample(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"trackingNumber":"1Z","data":{"status":"delivered"}}`, true},
		{`{"trackingNumber":"1Z","intercepted":false,"raw":"none","html":"<html>"}`, false},
	}
	for _, tt := range tests {
		var s sample
		if err := trackSample(&s, []byte(tt.body)); err != nil {
			t.Fatalf("trackSample(%s): %v", tt.body, err)
		}
		if s.Intercepted != tt.want {
			t.Errorf("trackSample(%s) intercepted = %v, want %v", tt.body, s.Intercepted, tt.want)
		}
	}
}

func TestOutcome(t *testing.T) {
	stable := target{Endpoint: "/api/parse", Methods: map[string]int{"static": 3}}
	if got := outcome(stable); got != "static" {
		t.Errorf("outcome(stable) = %q", got)
	}

	flipped := target{Endpoint: "/api/parse", Methods: map[string]int{"static": 1, "rendered": 2}}
	if got := outcome(flipped); len(got) < 9 || got[:9] != "unstable:" {
		t.Errorf("outcome(flipped) = %q, want unstable prefix", got)
	}

	track := target{Endpoint: "/api/track", Samples: []sample{
		{OK: true, Intercepted: true},
		{OK: true},
		{OK: false},
	}}
	if got := outcome(track); got != "captured 1/2" {
		t.Errorf("outcome(track) = %q, want captured 1/2", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.test , ,https://b.test")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}
