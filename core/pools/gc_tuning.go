package pools

import (
	"runtime/debug"
)

// GCConfig holds GC tuning parameters
type GCConfig struct {
	// Percent sets the garbage collection target percentage.
	// 0 keeps the runtime setting (GOGC), negative disables collection.
	Percent int

	// MemoryLimit sets the soft memory limit in bytes. 0 keeps the runtime setting.
	MemoryLimit int64
}

// ApplyGCConfig applies cfg and returns the settings it replaced, so a caller
// can restore them.
func ApplyGCConfig(cfg GCConfig) GCConfig {
	var prev GCConfig

	if cfg.Percent != 0 {
		prev.Percent = debug.SetGCPercent(cfg.Percent)
	}
	if cfg.MemoryLimit > 0 {
		prev.MemoryLimit = debug.SetMemoryLimit(cfg.MemoryLimit)
	}

	return prev
}
