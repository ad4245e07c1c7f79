package database

import (
	"os"
	"time"

	"vellum/internal/config"
	"vellum/pkg/logger"
	"vellum/pkg/utils"
)

// StartMaintenance runs the periodic SQLite housekeeping worker.
//
// CMS content is long-lived, so there is no retention pruning here; the worker
// only keeps the file healthy:
//   - checkpoints the WAL so it does not grow unbounded under write bursts
//     (settings writes, content edits)
//   - rebuilds the file with VACUUM when the physical size passes the
//     configured cap while most of it is dead pages (mass deletions)
func StartMaintenance() {
	maxSizeStr := config.AppConfig.Database.MaxSize
	maxSize := utils.SizeToBytes(maxSizeStr, 512*1024*1024) // Default 512MB

	intervalStr := config.AppConfig.Database.MaintenanceInterval
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		interval = 30 * time.Minute
	}

	logger.LogInfo("DB maintenance started. Size cap: %s, Interval: %s", maxSizeStr, interval)

	ticker := time.NewTicker(interval)

	// Run once at startup to recover from a bloated state left by a previous run.
	go checkAndCompact(maxSize)

	for range ticker.C {
		checkAndCompact(maxSize)
	}
}

func checkAndCompact(limitBytes int64) {
	dbPath := config.AppConfig.Database.Path

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		logger.LogError("Maintenance failed to stat DB file: %v", err)
		return
	}

	physicalSize := fileInfo.Size()
	walSize := int64(0)
	if walInfo, err := os.Stat(dbPath + "-wal"); err == nil {
		walSize = walInfo.Size()
	}

	// A WAL bigger than a quarter of the main file means checkpoints are
	// falling behind the write rate; fold it back in.
	if walSize > physicalSize/4 && walSize > 4*1024*1024 {
		if err := DB.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error; err != nil {
			logger.LogWarn("WAL checkpoint failed: %v", err)
		} else {
			logger.LogInfo("WAL checkpointed (%s folded back)", utils.FormatBytes(walSize))
		}
	}

	if physicalSize+walSize < limitBytes {
		return
	}

	// Estimate live data from page accounting; freelist pages are dead space.
	var pageCount, freeCount, pageSize int64
	DB.Raw("PRAGMA page_count;").Scan(&pageCount)
	DB.Raw("PRAGMA freelist_count;").Scan(&freeCount)
	DB.Raw("PRAGMA page_size;").Scan(&pageSize)

	if pageCount == 0 || pageSize == 0 {
		return
	}

	deadSpace := freeCount * pageSize
	isBloated := float64(deadSpace) > float64(physicalSize)*0.50

	logger.LogInfo("Storage Analysis - Phys: %s | Dead: %s | Cap: %s",
		utils.FormatBytes(physicalSize),
		utils.FormatBytes(deadSpace),
		utils.FormatBytes(limitBytes),
	)

	if !isBloated {
		// Over the cap but genuinely full of content; nothing safe to reclaim.
		logger.LogWarn("Database exceeds size cap with live data; raise database.max_size")
		return
	}

	if err := DB.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error; err != nil {
		logger.LogWarn("Pre-vacuum checkpoint failed: %v", err)
	}
	if err := DB.Exec("VACUUM;").Error; err != nil {
		logger.LogError("VACUUM failed: %v", err)
		return
	}
	logger.LogSuccess("Database vacuumed, reclaimed ~%s", utils.FormatBytes(deadSpace))
}
