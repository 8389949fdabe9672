package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"shrike/internal/config"
	"shrike/internal/database"
	"shrike/internal/providers/ipapi"
	"shrike/internal/refresh"
	"shrike/internal/reputation"
	"shrike/internal/support"
)

const (
	reputationSweepLockKey        = "shrike:leader:reputation_sweep"
	reputationSweepFallbackTicker = time.Hour

	defaultSweepThreads    = 4
	defaultSweepBatchLimit = 200
)

// StartReputationSweepRoutine runs the periodic reputation sweep on whichever
// instance currently holds the leadership lock. The cadence follows the sweep
// timer from the shared settings and picks up changes without a restart.
func StartReputationSweepRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	var intervalValue atomic.Value
	initialInterval := config.GetSweepInterval()
	if initialInterval <= 0 {
		initialInterval = reputationSweepFallbackTicker
	}
	intervalValue.Store(initialInterval)

	updateSignal := make(chan struct{}, 1)
	updates := config.SweepIntervalUpdates()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newInterval := <-updates:
				if newInterval <= 0 {
					newInterval = reputationSweepFallbackTicker
				}
				intervalValue.Store(newInterval)
				select {
				case updateSignal <- struct{}{}:
				default:
				}
			}
		}
	}()

	err := support.RunWithLeader(ctx, reputationSweepLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runReputationSweepLoop(leaderCtx, &intervalValue, updateSignal)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Reputation sweep routine stopped", "error", err)
	}
}

func runReputationSweepLoop(ctx context.Context, intervalValue *atomic.Value, updateSignal <-chan struct{}) {
	currentInterval := intervalValue.Load().(time.Duration)
	if currentInterval <= 0 {
		currentInterval = reputationSweepFallbackTicker
	}

	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx)
		case <-updateSignal:
			newInterval := intervalValue.Load().(time.Duration)
			if newInterval <= 0 {
				newInterval = reputationSweepFallbackTicker
			}
			if newInterval == currentInterval {
				continue
			}
			drainTicker(ticker)
			currentInterval = newInterval
			ticker.Reset(currentInterval)
		}
	}
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}

func sweepOnce(ctx context.Context) {
	start := time.Now()

	cfg := config.GetConfig()

	threads := int(cfg.Sweep.Threads)
	if threads <= 0 {
		threads = defaultSweepThreads
	}
	batchLimit := int(cfg.Sweep.BatchLimit)
	if batchLimit <= 0 {
		batchLimit = defaultSweepBatchLimit
	}

	cutoff := start.UTC().Add(-reputation.RefreshInterval)
	due, err := database.ListDueIPProfiles(ctx, cutoff, batchLimit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Reputation sweep canceled", "duration", time.Since(start))
			return
		}
		log.Error("Reputation sweep failed to load due profiles", "error", err)
		return
	}

	if len(due) == 0 {
		log.Debug("Reputation sweep found no due profiles")
		return
	}

	client := ipapi.NewClientWith(cfg.Provider.BaseURL, time.Duration(cfg.Provider.Timeout)*time.Second)
	engine := refresh.NewEngine(database.IPProfileStore{}, client)

	var refreshed, flagged, failed atomic.Uint64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for _, profile := range due {
		address := profile.Address
		group.Go(func() error {
			summary, err := engine.AutoRefresh(groupCtx, address)
			if err != nil {
				failed.Add(1)
				log.Warn("Reputation sweep: refresh failed", "address", address, "error", err)
				return nil
			}
			if summary == nil {
				return nil
			}
			refreshed.Add(1)
			if summary.Status == reputation.StatusFlagged {
				flagged.Add(1)
			}
			return nil
		})
	}

	_ = group.Wait()

	log.Info("Reputation sweep completed",
		"due", len(due),
		"refreshed", refreshed.Load(),
		"flagged", flagged.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start))
}
