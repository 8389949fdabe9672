package bootstrap

import (
	"context"

	"github.com/charmbracelet/log"

	"shrike/internal/config"
	"shrike/internal/database"
	jobruntime "shrike/internal/jobs/runtime"
	"shrike/internal/support"
)

func Setup() {
	config.ReadSettings()

	if _, err := database.SetupDB(); err != nil {
		log.Fatalf("failed to set up database: %v", err)
	}
	config.SetBetweenTime()

	if client, err := support.GetRedisClient(); err != nil {
		log.Warn("Config synchronization disabled", "error", err)
	} else {
		config.EnableRedisSynchronization(context.Background(), client)
	}

	// Routines

	go jobruntime.StartReputationSweepRoutine(context.Background())
}
