package models

import (
	"bytes"
	"encoding/json"
)

// MissMessage is reported when no matching response carried JSON.
const MissMessage = "api response not intercepted"

// TrackingResult is the outcome of a tracking lookup. When Captured is true,
// Payload holds the JSON body of the first matching backend response.
// Otherwise Snippet holds the start of the rendered DOM.
type TrackingResult struct {
	TrackingID string
	Captured   bool
	Payload    json.RawMessage
	SourceURL  string
	Snippet    string
}

type trackingMiss struct {
	TrackingNumber string `json:"trackingNumber"`
	Intercepted    bool   `json:"intercepted"`
	Raw            string `json:"raw"`
	HTML           string `json:"html"`
}

type trackingWrapped struct {
	TrackingNumber string          `json:"trackingNumber"`
	Data           json.RawMessage `json:"data"`
}

// MarshalJSON renders the payload with trackingNumber merged in.
//
// Object payloads get the identifier spliced in as their first member, so a
// payload key of the same name still wins when decoded. Non-object payloads
// are nested under "data".
func (r TrackingResult) MarshalJSON() ([]byte, error) {
	if !r.Captured {
		return json.Marshal(trackingMiss{
			TrackingNumber: r.TrackingID,
			Intercepted:    false,
			Raw:            MissMessage,
			HTML:           r.Snippet,
		})
	}

	payload := bytes.TrimSpace(r.Payload)
	if len(payload) < 2 || payload[0] != '{' {
		return json.Marshal(trackingWrapped{TrackingNumber: r.TrackingID, Data: payload})
	}

	id, err := json.Marshal(r.TrackingID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(payload) + len(id) + 20)
	buf.WriteString(`{"trackingNumber":`)
	buf.Write(id)
	rest := bytes.TrimSpace(payload[1:])
	if len(rest) > 0 && rest[0] != '}' {
		buf.WriteByte(',')
	}
	buf.Write(rest)
	return buf.Bytes(), nil
}
