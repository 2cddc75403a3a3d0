package server

import "time"

// HTTPError is the generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// CreateRunRequest submits one request to the agent loop.
type CreateRunRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// ArchivedRunResponse is the archived view of a finished run.
type ArchivedRunResponse struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Request     string     `json:"request"`
	Category    string     `json:"category"`
	FinalAnswer string     `json:"final_answer"`
	Status      string     `json:"status"`
	Iterations  int        `json:"iterations"`
	HitCeiling  bool       `json:"hit_ceiling"`
	ToolsUsed   []string   `json:"tools_used,omitempty"`
	TokensUsed  int64      `json:"tokens_used"`
	Cost        float64    `json:"cost"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// SearchResponse wraps session turn search hits.
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  interface{} `json:"hits"`
}
