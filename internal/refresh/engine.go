package refresh

import (
	"context"
	"strings"
	"time"

	"shrike/internal/domain"
	"shrike/internal/reputation"
)

// ProfileStore is the row store holding one reputation profile per observed
// address. GetByAddress returns (nil, nil) when no profile exists; the engine
// never creates one. UpdateReputation must be a single atomic point update.
type ProfileStore interface {
	GetByAddress(ctx context.Context, address string) (*domain.IPProfile, error)
	UpdateReputation(ctx context.Context, id uint64, update ReputationUpdate) error
}

// LookupClient performs the external reputation lookup. Failures are ordinary
// error values; the engine absorbs them into a degraded verdict.
type LookupClient interface {
	Name() string
	Lookup(ctx context.Context, address string) (*reputation.LookupResult, error)
}

// ReputationUpdate is the full set of reputation fields written back in one
// point update keyed by profile id.
type ReputationUpdate struct {
	Status     reputation.Status
	Provider   *string
	Reason     *string
	Payload    []byte
	CheckedAt  time.Time
	FlaggedAt  *time.Time
	ReviewedAt *time.Time
	ReviewedBy *string
}

// Summary is what callers get back from a refresh that actually ran.
type Summary struct {
	ID        uint64            `json:"id"`
	Address   string            `json:"address"`
	Status    reputation.Status `json:"status"`
	Reason    string            `json:"reason"`
	Provider  string            `json:"provider"`
	CheckedAt time.Time         `json:"checkedAt"`
	FlaggedAt *time.Time        `json:"flaggedAt"`
}

// Engine composes the classifier, policy, evaluator and the two collaborators
// into the public refresh operations. It holds no locks and runs no
// transactions; concurrent refreshes of one address are last-write-wins.
type Engine struct {
	store  ProfileStore
	client LookupClient
	now    func() time.Time
}

func NewEngine(store ProfileStore, client LookupClient) *Engine {
	return &Engine{
		store:  store,
		client: client,
		now:    time.Now,
	}
}

// AutoRefresh re-evaluates the address unless the stored verdict is still
// fresh. A nil Summary with a nil error means nothing was done.
func (e *Engine) AutoRefresh(ctx context.Context, address string) (*Summary, error) {
	return e.refresh(ctx, address, false)
}

// ForceRefresh bypasses the freshness and review-protection gates. Private
// addresses still resolve locally and never reach the provider.
func (e *Engine) ForceRefresh(ctx context.Context, address string) (*Summary, error) {
	return e.refresh(ctx, address, true)
}

func (e *Engine) refresh(ctx context.Context, address string, force bool) (*Summary, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	profile, err := e.store.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	now := e.now().UTC()

	decision := reputation.DecideRefresh(profile.PolicySnapshot(), now, force)
	if decision.Skip {
		return nil, nil
	}

	var (
		verdict  reputation.Verdict
		provider string
	)

	if decision.OverrideLocal {
		verdict = reputation.Verdict{
			Status: reputation.StatusSafe,
			Reason: reputation.ReasonLocalSkip,
		}
		provider = reputation.LocalProvider
	} else {
		result, lookupErr := e.client.Lookup(ctx, address)
		verdict = reputation.Evaluate(result, lookupErr, profile.ReputationStatus())
		provider = e.client.Name()
	}

	update := buildUpdate(profile, verdict, provider, now)

	if err := e.store.UpdateReputation(ctx, profile.ID, update); err != nil {
		return nil, err
	}

	return &Summary{
		ID:        profile.ID,
		Address:   profile.Address,
		Status:    update.Status,
		Reason:    verdict.Reason,
		Provider:  provider,
		CheckedAt: update.CheckedAt,
		FlaggedAt: update.FlaggedAt,
	}, nil
}

// buildUpdate computes the persisted fields from the snapshot read at the
// start of the refresh. checkedAt is set unconditionally; flaggedAt is
// preserved across a continuing flagged streak; review fields survive only
// when the resulting status is safe.
func buildUpdate(profile *domain.IPProfile, verdict reputation.Verdict, provider string, now time.Time) ReputationUpdate {
	update := ReputationUpdate{
		Status:    verdict.Status,
		Provider:  &provider,
		Payload:   verdict.Payload,
		CheckedAt: now,
	}

	if verdict.Reason != "" {
		reason := verdict.Reason
		update.Reason = &reason
	}

	if verdict.Status == reputation.StatusFlagged {
		if profile.ReputationStatus() == reputation.StatusFlagged && profile.FlaggedAt != nil {
			update.FlaggedAt = profile.FlaggedAt
		} else {
			flaggedAt := now
			update.FlaggedAt = &flaggedAt
		}
	}

	if verdict.Status == reputation.StatusSafe {
		update.ReviewedAt = profile.ReviewedAt
		update.ReviewedBy = profile.ReviewedBy
	}

	return update
}
