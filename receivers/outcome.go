package receivers

import "time"

// Outcome records the result of one delivery attempt. It is always produced:
// network failures, non-2xx responses and timeouts all become outcome data,
// never errors that cross the worker boundary. Outcomes exist for logging
// and the dispatch summary only and are never persisted.
//
// Provider and Target are stored pre-masked so an outcome can be logged or
// returned to a caller without leaking credentials or full phone numbers.
type Outcome struct {
	Kind       Kind      `json:"kind"`
	Provider   string    `json:"provider"`
	Target     string    `json:"target,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Succeeded reports whether the attempt got a 2xx response.
func (o Outcome) Succeeded() bool {
	return o.Error == "" && o.StatusCode/100 == 2
}
