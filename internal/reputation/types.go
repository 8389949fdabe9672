package reputation

import "encoding/json"

// Status is the trust verdict stored on an IP profile.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusSafe    Status = "safe"
	StatusFlagged Status = "flagged"
)

// LocalProvider marks verdicts produced by the private-address short-circuit
// instead of an external lookup.
const LocalProvider = "local"

// LookupResult is the raw response of the external reputation provider.
type LookupResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Proxy   bool   `json:"proxy"`
	Hosting bool   `json:"hosting"`
	Mobile  bool   `json:"mobile"`

	// Raw holds the provider response verbatim so it can be persisted
	// alongside the verdict.
	Raw json.RawMessage `json:"-"`
}

// Verdict is the outcome of evaluating a lookup result (or failure).
type Verdict struct {
	Status  Status
	Reason  string
	Payload []byte
}
