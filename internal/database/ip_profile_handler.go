package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shrike/internal/domain"
	"shrike/internal/refresh"
	"shrike/internal/reputation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultProfilePageSize = 50

// EnsureIPProfile records an observed address, creating its profile row on
// first sight. Used by the web surface, never by the refresh engine.
func EnsureIPProfile(ctx context.Context, address string) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	profile := domain.IPProfile{
		Address: address,
		Status:  string(reputation.StatusUnknown),
	}

	err := DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoNothing: true,
		}).
		Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("ensure ip profile: %w", err)
	}

	// Re-read so concurrent first-observers agree on the stored row.
	return GetIPProfileByAddress(ctx, address)
}

// GetIPProfileByAddress returns the profile for the address, or (nil, nil)
// when the address has never been observed.
func GetIPProfileByAddress(ctx context.Context, address string) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var profile domain.IPProfile
	err := DB.WithContext(ctx).
		Where("address = ?", address).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load ip profile: %w", err)
	}

	return &profile, nil
}

// UpdateIPProfileReputation writes the full reputation field set in one
// point update keyed by profile id.
func UpdateIPProfileReputation(ctx context.Context, id uint64, update refresh.ReputationUpdate) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	values := map[string]any{
		"status":      string(update.Status),
		"provider":    update.Provider,
		"reason":      update.Reason,
		"payload":     update.Payload,
		"checked_at":  update.CheckedAt,
		"flagged_at":  update.FlaggedAt,
		"reviewed_at": update.ReviewedAt,
		"reviewed_by": update.ReviewedBy,
	}

	err := DB.WithContext(ctx).
		Model(&domain.IPProfile{}).
		Where("id = ?", id).
		Updates(values).Error
	if err != nil {
		return fmt.Errorf("update ip profile reputation: %w", err)
	}

	return nil
}

// ListDueIPProfiles returns profiles whose last refresh attempt is missing or
// older than the cutoff, oldest first.
func ListDueIPProfiles(ctx context.Context, cutoff time.Time, limit int) ([]domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	query := DB.WithContext(ctx).
		Where("checked_at IS NULL OR checked_at < ?", cutoff).
		Order("checked_at ASC NULLS FIRST")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var profiles []domain.IPProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list due ip profiles: %w", err)
	}

	return profiles, nil
}

// MarkIPProfileReviewed records a moderator confirming the current safe
// verdict. Returns (nil, nil) when the profile is missing or not safe.
func MarkIPProfileReviewed(ctx context.Context, address, reviewer string, now time.Time) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	result := DB.WithContext(ctx).
		Model(&domain.IPProfile{}).
		Where("address = ? AND status = ?", address, string(reputation.StatusSafe)).
		Updates(map[string]any{
			"reviewed_at": now,
			"reviewed_by": reviewer,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("mark ip profile reviewed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	return GetIPProfileByAddress(ctx, address)
}

// GetIPProfilePage returns one page of profiles for the triage view,
// most recently checked first, plus the total row count.
func GetIPProfilePage(ctx context.Context, page, pageSize int) ([]domain.IPProfile, int64, error) {
	if DB == nil {
		return nil, 0, errors.New("database not initialised")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultProfilePageSize
	}

	var total int64
	if err := DB.WithContext(ctx).Model(&domain.IPProfile{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ip profiles: %w", err)
	}

	var profiles []domain.IPProfile
	err := DB.WithContext(ctx).
		Order("checked_at DESC NULLS LAST").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("load ip profile page: %w", err)
	}

	return profiles, total, nil
}

// IPProfileStore adapts the package-level profile queries to the refresh
// engine's store contract.
type IPProfileStore struct{}

func (IPProfileStore) GetByAddress(ctx context.Context, address string) (*domain.IPProfile, error) {
	return GetIPProfileByAddress(ctx, address)
}

func (IPProfileStore) UpdateReputation(ctx context.Context, id uint64, update refresh.ReputationUpdate) error {
	return UpdateIPProfileReputation(ctx, id, update)
}
