package models

import (
	"encoding/json"
	"testing"
)

func TestTrackingResultMarshal(t *testing.T) {
	tests := []struct {
		name   string
		result TrackingResult
		check  func(t *testing.T, m map[string]any)
	}{
		{
			name: "object payload merged",
			result: TrackingResult{
				TrackingID: "MAEU123",
				Captured:   true,
				Payload:    json.RawMessage(`{"status":"IN_TRANSIT","legs":[1,2]}`),
			},
			check: func(t *testing.T, m map[string]any) {
				if m["trackingNumber"] != "MAEU123" {
					t.Errorf("trackingNumber = %v", m["trackingNumber"])
				}
				if m["status"] != "IN_TRANSIT" {
					t.Errorf("status = %v", m["status"])
				}
				if _, ok := m["intercepted"]; ok {
					t.Error("captured result should not carry intercepted flag")
				}
			},
		},
		{
			name: "payload key wins on conflict",
			result: TrackingResult{
				TrackingID: "X1",
				Captured:   true,
				Payload:    json.RawMessage(` {"trackingNumber":"FROM-PAYLOAD"} `),
			},
			check: func(t *testing.T, m map[string]any) {
				if m["trackingNumber"] != "FROM-PAYLOAD" {
					t.Errorf("trackingNumber = %v, want payload value", m["trackingNumber"])
				}
			},
		},
		{
			name: "empty object payload",
			result: TrackingResult{
				TrackingID: "X2",
				Captured:   true,
				Payload:    json.RawMessage(`{}`),
			},
			check: func(t *testing.T, m map[string]any) {
				if len(m) != 1 || m["trackingNumber"] != "X2" {
					t.Errorf("got %v", m)
				}
			},
		},
		{
			name: "array payload nested under data",
			result: TrackingResult{
				TrackingID: "X3",
				Captured:   true,
				Payload:    json.RawMessage(`[1,2,3]`),
			},
			check: func(t *testing.T, m map[string]any) {
				data, ok := m["data"].([]any)
				if !ok || len(data) != 3 {
					t.Errorf("data = %v", m["data"])
				}
			},
		},
		{
			name: "miss indicator",
			result: TrackingResult{
				TrackingID: "X4",
				Snippet:    "<html><body>loading",
			},
			check: func(t *testing.T, m map[string]any) {
				if m["intercepted"] != false {
					t.Errorf("intercepted = %v", m["intercepted"])
				}
				if m["raw"] != MissMessage {
					t.Errorf("raw = %v", m["raw"])
				}
				if m["html"] != "<html><body>loading" {
					t.Errorf("html = %v", m["html"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("output is not valid JSON: %v\n%s", err, b)
			}
			tt.check(t, m)
		})
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := json.Unmarshal([]byte("{"), &struct{}{})
	err := NewPipelineError(ErrCodeFetchFailed, StageFetch, "bad", cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the wrapped cause")
	}
	relabeled := err.WithStage(StageIntercept)
	if relabeled.Stage != StageIntercept || err.Stage != StageFetch {
		t.Errorf("WithStage mutated original or failed: %q / %q", err.Stage, relabeled.Stage)
	}
	d := err.ToDetail()
	if d.Code != ErrCodeFetchFailed || d.Error != "bad" {
		t.Errorf("ToDetail = %+v", d)
	}
}
