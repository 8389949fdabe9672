package dto

// IPRequest carries a single address through the check, refresh and review
// endpoints.
type IPRequest struct {
	IP string `json:"ip"`
}
