package models

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	Version      string       `json:"version"`
	SessionStats SessionStats `json:"session_stats"`
}

// SessionStats reports the state of browser session usage.
type SessionStats struct {
	Provider       string `json:"provider"`
	MaxSessions    int    `json:"max_sessions"`
	ActiveSessions int    `json:"active_sessions"`
	TotalSessions  int64  `json:"total_sessions"`
}
