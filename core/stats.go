package core

import (
	"encoding/json"
	"fmt"

	"github.com/searchktools/pooled-server/core/pools"
)

// PoolSource reports worker pool statistics
type PoolSource interface {
	Stats() pools.WorkerPoolStats
}

// ServerStats is a snapshot of engine, pool and buffer statistics
type ServerStats struct {
	Connections ConnectionStats     `json:"connections"`
	Pool        PoolStats           `json:"pool"`
	Buffers     pools.BytePoolStats `json:"buffers"`
}

// ConnectionStats counts accepted and processed connections
type ConnectionStats struct {
	Accepted  uint64 `json:"accepted"`
	Processed uint64 `json:"processed"`
	Empty     uint64 `json:"empty"`
	IOErrors  uint64 `json:"io_errors"`
}

// PoolStats mirrors pools.WorkerPoolStats for encoding
type PoolStats struct {
	Workers   int      `json:"workers"`
	Busy      int      `json:"busy"`
	Submitted uint64   `json:"submitted"`
	Completed uint64   `json:"completed"`
	Panicked  uint64   `json:"panicked"`
	Pending   uint64   `json:"pending"`
	PerWorker []uint64 `json:"per_worker"`
	Closed    bool     `json:"closed"`
}

// Stats returns a snapshot combining the engine counters with pool
func (e *Engine) Stats(pool PoolSource) ServerStats {
	stats := ServerStats{
		Connections: ConnectionStats{
			Accepted:  e.stats.accepted.Load(),
			Processed: e.stats.processed.Load(),
			Empty:     e.stats.empty.Load(),
			IOErrors:  e.stats.ioErrors.Load(),
		},
		Buffers: e.proc.BufferStats(),
	}

	if pool != nil {
		ps := pool.Stats()
		stats.Pool = PoolStats{
			Workers:   ps.NumWorkers,
			Busy:      ps.BusyWorkers,
			Submitted: ps.TasksSubmitted,
			Completed: ps.TasksCompleted,
			Panicked:  ps.TasksPanicked,
			Pending:   ps.TasksPending,
			PerWorker: ps.PerWorker,
			Closed:    ps.Closed,
		}
	}

	return stats
}

// Map returns s as a JSON-compatible map
func (s ServerStats) Map() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Text returns s as human-readable text
func (s ServerStats) Text() string {
	return fmt.Sprintf(`Server Statistics
=================

Connections:
  Accepted:  %d
  Processed: %d
  Empty:     %d
  I/O errors: %d

Worker Pool:
  Workers:   %d (busy %d)
  Submitted: %d
  Completed: %d
  Panicked:  %d
  Pending:   %d

Read Buffers:
  Size:   %d bytes
  Gets:   %d
  Allocs: %d
`,
		s.Connections.Accepted, s.Connections.Processed, s.Connections.Empty, s.Connections.IOErrors,
		s.Pool.Workers, s.Pool.Busy, s.Pool.Submitted, s.Pool.Completed, s.Pool.Panicked, s.Pool.Pending,
		s.Buffers.Size, s.Buffers.TotalGets, s.Buffers.Allocs,
	)
}
