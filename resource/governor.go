// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package resource provides memory-pressure probing and reclamation for the
// indexing pipeline.
package resource

import (
	"log/slog"
	"runtime"
	"runtime/debug"
)

// DefaultLimitBytes is the default process memory ceiling: 4 GiB.
const DefaultLimitBytes uint64 = 4 << 30

// Status reflects memory pressure relative to the configured limit.
type Status int

const (
	// StatusOK means usage is at or below 75% of the limit.
	StatusOK Status = iota
	// StatusElevated means usage is above 75% of the limit.
	StatusElevated
	// StatusCritical means usage is above 90% of the limit.
	StatusCritical
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusElevated:
		return "elevated"
	case StatusCritical:
		return "critical"
	default:
		return "ok"
	}
}

// Governor observes memory pressure and triggers reclamation. It is a
// probe-and-act utility, not a scheduler: callers decide when to check and
// when to reclaim, and the governor never blocks or throttles.
type Governor interface {
	// Usage returns the current live-heap bytes of the process.
	Usage() uint64

	// Check classifies current usage against the configured limit.
	Check() Status

	// Reclaim forces memory reclamation and returns the bytes freed.
	Reclaim() uint64
}

// RuntimeGovernor implements Governor on the Go runtime's memory statistics.
type RuntimeGovernor struct {
	limit  uint64
	logger *slog.Logger
}

var _ Governor = (*RuntimeGovernor)(nil)

// NewGovernor creates a RuntimeGovernor with the given memory limit in bytes.
// A zero limit selects DefaultLimitBytes. A nil logger selects slog.Default().
func NewGovernor(limitBytes uint64, logger *slog.Logger) *RuntimeGovernor {
	if limitBytes == 0 {
		limitBytes = DefaultLimitBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuntimeGovernor{
		limit:  limitBytes,
		logger: logger.With("component", "resource-governor"),
	}
}

// Limit returns the configured memory ceiling in bytes.
func (g *RuntimeGovernor) Limit() uint64 {
	return g.limit
}

// Usage returns the current live-heap bytes of the process.
func (g *RuntimeGovernor) Usage() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Check classifies current usage against the configured limit and logs the
// probe. Elevated and Critical probes log at warn level.
func (g *RuntimeGovernor) Check() Status {
	usage := g.Usage()
	status := classify(usage, g.limit)

	pct := float64(usage) / float64(g.limit) * 100
	switch status {
	case StatusCritical:
		g.logger.Warn("memory approaching limit",
			"usage_mb", usage/(1<<20), "limit_mb", g.limit/(1<<20), "usage_pct", pct)
	case StatusElevated:
		g.logger.Warn("memory usage high",
			"usage_mb", usage/(1<<20), "limit_mb", g.limit/(1<<20), "usage_pct", pct)
	default:
		g.logger.Debug("memory check",
			"usage_mb", usage/(1<<20), "usage_pct", pct)
	}
	return status
}

// Reclaim forces a garbage collection, returns freed heap to the OS, and
// reports the bytes freed (clamped at zero).
func (g *RuntimeGovernor) Reclaim() uint64 {
	before := g.Usage()
	debug.FreeOSMemory()
	after := g.Usage()

	var freed uint64
	if before > after {
		freed = before - after
	}
	g.logger.Debug("reclaimed memory",
		"freed_mb", freed/(1<<20), "before_mb", before/(1<<20), "after_mb", after/(1<<20))
	return freed
}

// classify maps a usage measurement to a Status. Boundaries are strict:
// exactly 75% or 90% of the limit is not yet the next tier.
func classify(usage, limit uint64) Status {
	pct := float64(usage) / float64(limit) * 100
	switch {
	case pct > 90:
		return StatusCritical
	case pct > 75:
		return StatusElevated
	default:
		return StatusOK
	}
}

// NopGovernor reports no pressure and reclaims nothing. It is for tests and
// for callers that opt out of memory governance.
type NopGovernor struct{}

var _ Governor = NopGovernor{}

// Usage always returns zero.
func (NopGovernor) Usage() uint64 { return 0 }

// Check always returns StatusOK.
func (NopGovernor) Check() Status { return StatusOK }

// Reclaim does nothing and returns zero.
func (NopGovernor) Reclaim() uint64 { return 0 }
