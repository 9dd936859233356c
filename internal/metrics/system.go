package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// SystemSnapshot is a point-in-time read of system-wide CPU usage and the
// process's Go runtime memory stats, backing the additive /metrics/system
// endpoint (SPEC_FULL.md §3).
type SystemSnapshot struct {
	mu          sync.RWMutex
	cpuPercent  float64
	memoryStats runtime.MemStats
}

// NewSystemSnapshot creates a system snapshot tracker and takes an
// initial reading.
func NewSystemSnapshot() *SystemSnapshot {
	s := &SystemSnapshot{}
	s.Update()
	return s
}

// Update refreshes the CPU and memory readings. cpu.Percent blocks for
// up to interval, so callers should run this on a ticker rather than
// per-request.
func (s *SystemSnapshot) Update() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	percents, err := cpu.Percent(200*time.Millisecond, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memoryStats = mem
	if err == nil && len(percents) > 0 {
		s.cpuPercent = percents[0]
	}
}

// Info returns a JSON-friendly snapshot of CPU/memory/runtime state.
func (s *SystemSnapshot) Info() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"cpu": map[string]interface{}{
			"cores":   runtime.NumCPU(),
			"percent": s.cpuPercent,
		},
		"memory": map[string]interface{}{
			"heap_alloc_mb": float64(s.memoryStats.HeapAlloc) / 1024 / 1024,
			"sys_total_mb":  float64(s.memoryStats.Sys) / 1024 / 1024,
			"gc_count":      s.memoryStats.NumGC,
		},
		"runtime": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
	}
}
