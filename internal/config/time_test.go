package config

import (
	"testing"
	"time"
)

func TestCalculateMillisecondsOfCheckingPeriod(t *testing.T) {
	timer := Timer{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	want := uint64((24*60*60 + 2*60*60 + 3*60 + 4) * 1000)

	if got := CalculateMillisecondsOfCheckingPeriod(timer); got != want {
		t.Fatalf("CalculateMillisecondsOfCheckingPeriod returned %d, want %d", got, want)
	}
}

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})
}

func TestSetBetweenTime(t *testing.T) {
	origCfg := GetConfig()
	origInterval := GetSweepInterval()
	origListeners := sweepIntervalListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		sweepInterval.Store(origInterval)
		sweepIntervalListeners = origListeners
	})

	testCfg := Config{}
	testCfg.Sweep.SweepTimer = Timer{Hours: 6}

	configValue.Store(testCfg)
	sweepIntervalListeners = nil

	SetBetweenTime()

	if got := GetSweepInterval(); got != 6*time.Hour {
		t.Fatalf("GetSweepInterval returned %s, want 6h", got)
	}
}

func TestSweepIntervalUpdatesNotifiesListeners(t *testing.T) {
	origCfg := GetConfig()
	origInterval := GetSweepInterval()
	origListeners := sweepIntervalListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		sweepInterval.Store(origInterval)
		sweepIntervalListeners = origListeners
	})

	sweepIntervalListeners = nil

	ch := SweepIntervalUpdates()
	select {
	case got := <-ch:
		if got != GetSweepInterval() {
			t.Fatalf("initial interval = %s, want %s", got, GetSweepInterval())
		}
	default:
		t.Fatal("listener channel must be seeded with the current interval")
	}

	testCfg := Config{}
	testCfg.Sweep.SweepTimer = Timer{Minutes: 30}
	configValue.Store(testCfg)
	SetBetweenTime()

	select {
	case got := <-ch:
		if got != 30*time.Minute {
			t.Fatalf("updated interval = %s, want 30m", got)
		}
	default:
		t.Fatal("listener channel must receive interval changes")
	}

	if got := GetSweepInterval(); got != 30*time.Minute {
		t.Fatalf("GetSweepInterval returned %s, want 30m", got)
	}
}

func TestDefaultSweepIntervalWhenTimerUnset(t *testing.T) {
	origCfg := GetConfig()
	origInterval := GetSweepInterval()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		sweepInterval.Store(origInterval)
	})

	configValue.Store(Config{})
	SetBetweenTime()

	if got := GetSweepInterval(); got != defaultSweepInterval {
		t.Fatalf("GetSweepInterval returned %s, want default %s", got, defaultSweepInterval)
	}
}
