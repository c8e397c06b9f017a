package models

// ParseRequest is the payload for POST /api/parse.
type ParseRequest struct {
	// URL is the page to extract. Required.
	URL string `json:"url"`

	// IncludeContent adds the main article as Markdown to the result.
	IncludeContent bool `json:"include_content,omitempty"`
}

// TrackRequest is the payload for POST /api/track and /api/parse-maersk.
// Either a tracking page URL or a bare identifier must be given.
type TrackRequest struct {
	URL        string `json:"url,omitempty"`
	TrackingID string `json:"tracking_id,omitempty"`
}
