package dto

import "shrike/internal/domain"

// IPProfilePage is one page of the moderation triage view.
type IPProfilePage struct {
	Profiles []domain.IPProfile `json:"profiles"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}
