package sysmon

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot holds the process health figures attached to heartbeat signals.
type Snapshot struct {
	CPUPercent  float64 `json:"cpu_percent"`
	RSSBytes    uint64  `json:"rss_bytes"`
	OpenFDs     int     `json:"open_fds"`
	Connections int     `json:"connections"`
	Goroutines  int     `json:"goroutines"`
	UptimeSecs  float64 `json:"uptime_secs"`
}

// Monitor samples the running process. Safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	proc    *process.Process
	started time.Time
}

// NewMonitor attaches to the current process.
func NewMonitor() (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{proc: proc, started: time.Now()}, nil
}

// Snapshot collects current figures. Per-metric failures degrade to zero
// values rather than failing the whole sample; heartbeats must keep
// flowing on platforms where gopsutil cannot enumerate everything.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		UptimeSecs: time.Since(m.started).Seconds(),
	}

	if cpu, err := m.proc.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if mem, err := m.proc.MemoryInfo(); err == nil && mem != nil {
		snap.RSSBytes = mem.RSS
	}
	if fds, err := m.proc.NumFDs(); err == nil {
		snap.OpenFDs = int(fds)
	}
	if conns, err := m.proc.Connections(); err == nil {
		snap.Connections = len(conns)
	}
	return snap
}

// Metadata renders the snapshot as heartbeat signal metadata.
func (m *Monitor) Metadata() map[string]any {
	snap := m.Snapshot()
	return map[string]any{
		"status":      "nominal",
		"cpu_percent": snap.CPUPercent,
		"rss_bytes":   snap.RSSBytes,
		"open_fds":    snap.OpenFDs,
		"connections": snap.Connections,
		"goroutines":  snap.Goroutines,
		"uptime_secs": snap.UptimeSecs,
	}
}
