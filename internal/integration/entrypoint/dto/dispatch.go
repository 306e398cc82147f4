// Package dto defines request and response shapes for the HTTP API.
package dto

// DispatchResults breaks down one dispatch run by priority.
type DispatchResults struct {
	HighPriority   int `json:"high_priority"`
	MediumPriority int `json:"medium_priority"`
	LowPriority    int `json:"low_priority"`
	Failed         int `json:"failed"`
	Total          int `json:"total"`
}

// DispatchResponse is the trigger endpoint response. The run returns 200
// even with partial item failures; only run-level errors produce a 500.
type DispatchResponse struct {
	OK        bool            `json:"ok"`
	Processed int             `json:"processed"`
	Results   DispatchResults `json:"results"`
	Timestamp string          `json:"timestamp"`
}

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
