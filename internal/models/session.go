package models

// SessionInfo represents one dashboard session and its parameter state.
type SessionInfo struct {
	ID        string                 `json:"id"`
	CreatedAt int64                  `json:"created_at"` // Unix timestamp
	LastSeen  int64                  `json:"last_seen"`  // Unix timestamp
	Params    map[string]interface{} `json:"params"`
}

// CreateSessionResponse carries the bearer token for the new session.
type CreateSessionResponse struct {
	Session SessionInfo `json:"session"`
	Token   string      `json:"token"`
}

// ParamUpdateRequest represents the set-field payload. Value stays untyped:
// the parameter space decides whether it fits the field's constraint.
type ParamUpdateRequest struct {
	Value interface{} `json:"value"`
}
