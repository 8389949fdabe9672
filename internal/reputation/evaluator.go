package reputation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	reasonProxy       = "address is a known proxy or VPN exit"
	reasonHosting     = "address belongs to a hosting provider or datacenter"
	reasonMobile      = "address belongs to a mobile carrier network"
	reasonClean       = "no suspicious activity detected"
	reasonUnavailable = "lookup unavailable"

	// ReasonLocalSkip is persisted for private addresses that never reach
	// the external provider.
	ReasonLocalSkip = "private address, external lookup skipped"

	reasonSeparator = "; "

	providerStatusSuccess = "success"
)

// Evaluate maps a raw provider response, or a lookup failure, onto a trust
// verdict. previous is the status stored before this refresh attempt; it only
// matters on the failure path, where an already-flagged address stays flagged
// rather than being silently downgraded.
func Evaluate(result *LookupResult, lookupErr error, previous Status) Verdict {
	if lookupErr != nil {
		status := StatusUnknown
		if previous == StatusFlagged {
			status = StatusFlagged
		}

		payload, _ := json.Marshal(map[string]string{"error": lookupErr.Error()})
		return Verdict{
			Status:  status,
			Reason:  fmt.Sprintf("lookup failed: %v", lookupErr),
			Payload: payload,
		}
	}

	payload := rawPayload(result)

	if result.Status != providerStatusSuccess {
		reason := strings.TrimSpace(result.Message)
		if reason == "" {
			reason = reasonUnavailable
		}
		return Verdict{
			Status:  StatusUnknown,
			Reason:  reason,
			Payload: payload,
		}
	}

	// Fixed check order: proxy, hosting, mobile.
	var clauses []string
	if result.Proxy {
		clauses = append(clauses, reasonProxy)
	}
	if result.Hosting {
		clauses = append(clauses, reasonHosting)
	}
	if result.Mobile {
		clauses = append(clauses, reasonMobile)
	}

	if len(clauses) > 0 {
		return Verdict{
			Status:  StatusFlagged,
			Reason:  strings.Join(clauses, reasonSeparator),
			Payload: payload,
		}
	}

	return Verdict{
		Status:  StatusSafe,
		Reason:  reasonClean,
		Payload: payload,
	}
}

func rawPayload(result *LookupResult) []byte {
	if len(result.Raw) > 0 {
		return result.Raw
	}
	payload, _ := json.Marshal(result)
	return payload
}
