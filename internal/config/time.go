package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultSweepInterval = time.Hour

var (
	sweepInterval          atomic.Value
	sweepIntervalListeners []chan time.Duration
	listenersMu            sync.Mutex
)

func init() {
	sweepInterval.Store(defaultSweepInterval)
}

func SetBetweenTime() {
	cfg := GetConfig()
	setSweepInterval(calculateSweepInterval(cfg))
}

func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfCheckingPeriod(timer)

	// Enforce minimum interval (e.g., 1 second)
	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfCheckingPeriod(timer Timer) uint64 {
	// Calculate total duration in milliseconds
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func GetSweepInterval() time.Duration {
	return sweepInterval.Load().(time.Duration)
}

// SweepIntervalUpdates returns a channel seeded with the current interval that
// receives every subsequent change.
func SweepIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	sweepIntervalListeners = append(sweepIntervalListeners, ch)
	listenersMu.Unlock()

	ch <- GetSweepInterval()
	return ch
}

func setSweepInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	current := GetSweepInterval()
	if current == interval {
		return
	}

	sweepInterval.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range sweepIntervalListeners {
		select {
		case ch <- interval:
		default:
		}
	}
}

func calculateSweepInterval(cfg Config) time.Duration {
	timer := cfg.Sweep.SweepTimer
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return defaultSweepInterval
	}
	return CalculateBetweenTime(timer)
}
