package reputation

import "time"

const (
	// RefreshInterval is how long a verdict stays fresh before a routine
	// refresh performs a new lookup.
	RefreshInterval = 6 * time.Hour

	// ReviewProtectionWindow shields a moderator-confirmed safe verdict
	// from routine refreshes even after RefreshInterval has elapsed.
	ReviewProtectionWindow = 7 * 24 * time.Hour
)

// PolicyInput is the profile snapshot the refresh policy decides on.
type PolicyInput struct {
	Address    string
	Status     Status
	CheckedAt  *time.Time
	ReviewedAt *time.Time
}

// Decision tells the orchestrator whether to skip the refresh entirely or to
// resolve it to a forced local-safe verdict without contacting the provider.
type Decision struct {
	Skip          bool
	OverrideLocal bool
}

// DecideRefresh applies the cache-validity policy. Private addresses always
// resolve locally, regardless of force or prior state. force bypasses both
// time gates for public addresses.
func DecideRefresh(in PolicyInput, now time.Time, force bool) Decision {
	if IsPrivateAddress(in.Address) {
		return Decision{OverrideLocal: true}
	}

	if force {
		return Decision{}
	}

	if in.CheckedAt != nil && now.Sub(*in.CheckedAt) < RefreshInterval {
		return Decision{Skip: true}
	}

	if in.Status == StatusSafe && in.ReviewedAt != nil && now.Sub(*in.ReviewedAt) < ReviewProtectionWindow {
		return Decision{Skip: true}
	}

	return Decision{}
}
