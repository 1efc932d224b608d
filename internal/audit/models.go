package audit

import "time"

// Event records one gate decision. Keep it transport-agnostic so the
// log, Kafka and Postgres sinks can all fan out from the same value.
type Event struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	RequestID string    `json:"request_id,omitempty"`
	Path      string    `json:"path"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason"`
	Subject   string    `json:"subject,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Device    string    `json:"device,omitempty"`
	// DeviceFP binds browser family to client address. The raw User-Agent
	// stays out of sinks on purpose.
	DeviceFP string `json:"device_fp,omitempty"`
}
