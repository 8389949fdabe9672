package refresh_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"shrike/internal/database"
	"shrike/internal/domain"
	"shrike/internal/refresh"
	"shrike/internal/reputation"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(&domain.IPProfile{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
	})

	return db
}

type stubClient struct {
	result *reputation.LookupResult
	err    error
	calls  int
}

func (s *stubClient) Name() string {
	return "stub-provider"
}

func (s *stubClient) Lookup(_ context.Context, _ string) (*reputation.LookupResult, error) {
	s.calls++
	return s.result, s.err
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestAutoRefreshFlagsProxyExit(t *testing.T) {
	db := setupEngineTestDB(t)

	profile := domain.IPProfile{
		Address:    "203.0.113.5",
		Status:     string(reputation.StatusSafe),
		ReviewedAt: timePtr(time.Now().UTC().Add(-30 * 24 * time.Hour)),
		ReviewedBy: strPtr("mod@example.com"),
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success", Proxy: true}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.AutoRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("auto refresh: %v", err)
	}
	if summary == nil {
		t.Fatal("expected a summary for a never-checked profile")
	}
	if summary.Status != reputation.StatusFlagged {
		t.Fatalf("summary status = %s, want %s", summary.Status, reputation.StatusFlagged)
	}

	var stored domain.IPProfile
	if err := db.First(&stored, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if stored.Status != string(reputation.StatusFlagged) {
		t.Fatalf("stored status = %s, want flagged", stored.Status)
	}
	if stored.CheckedAt == nil || stored.FlaggedAt == nil {
		t.Fatal("checkedAt and flaggedAt must both be set")
	}
	if !stored.FlaggedAt.Equal(*stored.CheckedAt) {
		t.Fatalf("flaggedAt = %v, want first-flag timestamp equal to checkedAt %v", stored.FlaggedAt, stored.CheckedAt)
	}
	if stored.ReviewedAt != nil || stored.ReviewedBy != nil {
		t.Fatal("review fields must be cleared on a non-safe verdict")
	}
	if stored.Provider == nil || *stored.Provider != "stub-provider" {
		t.Fatalf("provider = %v, want stub-provider", stored.Provider)
	}
}

func TestAutoRefreshSkipsFreshVerdict(t *testing.T) {
	db := setupEngineTestDB(t)

	checked := time.Now().UTC().Add(-time.Hour)
	profile := domain.IPProfile{
		Address:   "203.0.113.5",
		Status:    string(reputation.StatusUnknown),
		CheckedAt: &checked,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success"}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.AutoRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("auto refresh: %v", err)
	}
	if summary != nil {
		t.Fatalf("summary = %+v, want nothing within the refresh window", summary)
	}
	if client.calls != 0 {
		t.Fatalf("provider calls = %d, want 0", client.calls)
	}

	var stored domain.IPProfile
	if err := db.First(&stored, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if stored.CheckedAt == nil || !stored.CheckedAt.Equal(checked) {
		t.Fatal("skip must leave the stored profile untouched")
	}
}

func TestAutoRefreshIdempotentWithinWindow(t *testing.T) {
	db := setupEngineTestDB(t)

	profile := domain.IPProfile{Address: "203.0.113.5", Status: string(reputation.StatusUnknown)}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success"}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	first, err := engine.AutoRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if first == nil {
		t.Fatal("first refresh should run")
	}

	var afterFirst domain.IPProfile
	if err := db.First(&afterFirst, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}

	second, err := engine.AutoRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if second != nil {
		t.Fatalf("second refresh = %+v, want nothing", second)
	}
	if client.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", client.calls)
	}

	var afterSecond domain.IPProfile
	if err := db.First(&afterSecond, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if !afterSecond.CheckedAt.Equal(*afterFirst.CheckedAt) || afterSecond.Status != afterFirst.Status {
		t.Fatal("second refresh must leave the stored profile unchanged")
	}
}

func TestAutoRefreshHonoursReviewProtection(t *testing.T) {
	db := setupEngineTestDB(t)

	now := time.Now().UTC()
	profile := domain.IPProfile{
		Address:    "203.0.113.5",
		Status:     string(reputation.StatusSafe),
		CheckedAt:  timePtr(now.Add(-10 * 24 * time.Hour)),
		ReviewedAt: timePtr(now.Add(-24 * time.Hour)),
		ReviewedBy: strPtr("mod@example.com"),
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success", Proxy: true}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.AutoRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("auto refresh: %v", err)
	}
	if summary != nil {
		t.Fatal("reviewed safe verdict must not be refreshed automatically")
	}
	if client.calls != 0 {
		t.Fatalf("provider calls = %d, want 0", client.calls)
	}
}

func TestForceRefreshPrivateAddress(t *testing.T) {
	db := setupEngineTestDB(t)

	now := time.Now().UTC()
	profile := domain.IPProfile{
		Address:   "192.168.1.50",
		Status:    string(reputation.StatusFlagged),
		FlaggedAt: timePtr(now.Add(-48 * time.Hour)),
		CheckedAt: timePtr(now.Add(-48 * time.Hour)),
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{err: errors.New("must not be called")}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.ForceRefresh(context.Background(), "192.168.1.50")
	if err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if summary == nil {
		t.Fatal("private address must resolve to a local verdict")
	}
	if summary.Status != reputation.StatusSafe || summary.Provider != reputation.LocalProvider {
		t.Fatalf("summary = %s/%s, want safe/local", summary.Status, summary.Provider)
	}
	if summary.FlaggedAt != nil {
		t.Fatal("local verdict must clear flaggedAt")
	}
	if client.calls != 0 {
		t.Fatalf("provider calls = %d, want 0", client.calls)
	}

	var stored domain.IPProfile
	if err := db.First(&stored, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if stored.Status != string(reputation.StatusSafe) {
		t.Fatalf("stored status = %s, want safe", stored.Status)
	}
	if stored.FlaggedAt != nil {
		t.Fatal("stored flaggedAt must be null")
	}
	if len(stored.Payload) != 0 {
		t.Fatalf("payload = %s, want null for local verdicts", stored.Payload)
	}
}

func TestRefreshMissingProfileDoesNothing(t *testing.T) {
	setupEngineTestDB(t)

	client := &stubClient{result: &reputation.LookupResult{Status: "success"}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.AutoRefresh(context.Background(), "203.0.113.99")
	if err != nil {
		t.Fatalf("auto refresh: %v", err)
	}
	if summary != nil {
		t.Fatal("missing profile must resolve to nothing")
	}
	if client.calls != 0 {
		t.Fatalf("provider calls = %d, want 0", client.calls)
	}
}

func TestRefreshEmptyAddressDoesNothing(t *testing.T) {
	client := &stubClient{}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	// database.DB is nil here: an empty address must return before any
	// store access.
	summary, err := engine.AutoRefresh(context.Background(), "   ")
	if err != nil {
		t.Fatalf("auto refresh: %v", err)
	}
	if summary != nil {
		t.Fatal("blank address must resolve to nothing")
	}
}

func TestForceRefreshLookupFailurePreservesFlaggedStreak(t *testing.T) {
	db := setupEngineTestDB(t)

	now := time.Now().UTC()
	firstFlagged := now.Add(-72 * time.Hour)
	profile := domain.IPProfile{
		Address:   "203.0.113.5",
		Status:    string(reputation.StatusFlagged),
		FlaggedAt: &firstFlagged,
		CheckedAt: timePtr(now.Add(-8 * time.Hour)),
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{err: errors.New("connection refused")}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	summary, err := engine.ForceRefresh(context.Background(), "203.0.113.5")
	if err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if summary.Status != reputation.StatusFlagged {
		t.Fatalf("summary status = %s, want flagged retained on failure", summary.Status)
	}
	if !strings.Contains(summary.Reason, "connection refused") {
		t.Fatalf("reason = %q, want failure detail", summary.Reason)
	}

	var stored domain.IPProfile
	if err := db.First(&stored, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if stored.FlaggedAt == nil || !stored.FlaggedAt.Equal(firstFlagged) {
		t.Fatalf("flaggedAt = %v, want streak start %v preserved", stored.FlaggedAt, firstFlagged)
	}
	if stored.CheckedAt == nil || !stored.CheckedAt.After(firstFlagged) {
		t.Fatal("checkedAt must advance even on a failed lookup")
	}
}

func TestForceRefreshSafeVerdictKeepsReviewFields(t *testing.T) {
	db := setupEngineTestDB(t)

	now := time.Now().UTC()
	profile := domain.IPProfile{
		Address:    "203.0.113.5",
		Status:     string(reputation.StatusSafe),
		CheckedAt:  timePtr(now.Add(-time.Hour)),
		ReviewedAt: timePtr(now.Add(-2 * time.Hour)),
		ReviewedBy: strPtr("mod@example.com"),
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success"}}
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	if _, err := engine.ForceRefresh(context.Background(), "203.0.113.5"); err != nil {
		t.Fatalf("force refresh: %v", err)
	}

	var stored domain.IPProfile
	if err := db.First(&stored, profile.ID).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if stored.ReviewedAt == nil || stored.ReviewedBy == nil {
		t.Fatal("review fields must survive a verdict that stays safe")
	}
}

type failingStore struct {
	database.IPProfileStore
}

func (failingStore) UpdateReputation(_ context.Context, _ uint64, _ refresh.ReputationUpdate) error {
	return errors.New("write failed")
}

func TestRefreshPropagatesStoreFailure(t *testing.T) {
	db := setupEngineTestDB(t)

	profile := domain.IPProfile{Address: "203.0.113.5", Status: string(reputation.StatusUnknown)}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	client := &stubClient{result: &reputation.LookupResult{Status: "success"}}
	engine := refresh.NewEngine(failingStore{}, client)

	if _, err := engine.ForceRefresh(context.Background(), "203.0.113.5"); err == nil {
		t.Fatal("store failures must propagate to the caller")
	}
}
