package domain

import (
	"time"

	"shrike/internal/reputation"
)

// IPProfile is the reputation row kept for every address observed on the
// site. Rows are created when an address is first seen; the refresh engine
// only mutates the reputation fields of an existing row.
type IPProfile struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Address string `gorm:"uniqueIndex;not null;size:64" json:"address"`

	Status   string  `gorm:"size:16;not null;default:'unknown';check:status IN ('unknown', 'safe', 'flagged')" json:"status"`
	Provider *string `gorm:"size:32" json:"provider"`
	Reason   *string `gorm:"size:512" json:"reason"`
	Payload  []byte  `gorm:"type:jsonb" json:"-"`

	CheckedAt *time.Time `gorm:"index" json:"checkedAt"`

	// FlaggedAt records "first flagged since last non-flagged": it survives
	// repeated flagged verdicts in one streak and is null whenever the
	// status is not flagged.
	FlaggedAt *time.Time `json:"flaggedAt"`

	// Review fields are set by a moderator confirming a safe verdict and
	// are cleared on any transition away from safe.
	ReviewedAt *time.Time `json:"reviewedAt"`
	ReviewedBy *string    `gorm:"size:255" json:"reviewedBy"`

	FirstSeenAt time.Time `gorm:"autoCreateTime" json:"firstSeenAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

// ReputationStatus returns the stored status as the typed verdict value.
func (p *IPProfile) ReputationStatus() reputation.Status {
	return reputation.Status(p.Status)
}

// PolicySnapshot extracts the fields the refresh policy decides on.
func (p *IPProfile) PolicySnapshot() reputation.PolicyInput {
	return reputation.PolicyInput{
		Address:    p.Address,
		Status:     p.ReputationStatus(),
		CheckedAt:  p.CheckedAt,
		ReviewedAt: p.ReviewedAt,
	}
}
