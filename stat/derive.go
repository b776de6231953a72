package stat

import (
	"errors"
	"fmt"
)

// ErrNoAppTime marks a snapshot whose application-time counter is zero, which
// would make the overall CPU percentage a division by zero. The firmware
// always reports a positive app time, so this is unrecoverable bad data.
var ErrNoAppTime = errors.New("snapshot reports zero app time")

// TaskMetrics holds the per-task display values for one render.
// CPUPercent is only meaningful when HasPercent is set (the device reported
// nonzero aggregate cpu time); the per-call costs only when HasPerCall is set
// (the task ran at least once during the interval).
type TaskMetrics struct {
	CPUPercent    float64
	HasPercent    bool
	CPUPerCallUS  float64
	LatePerCallUS float64
	HasPerCall    bool
}

// Metrics is the derived view of one Snapshot. It is ephemeral, recomputed
// from scratch for every frame.
type Metrics struct {
	Tasks             []TaskMetrics
	CPUAllUS          uint64  // sum of cpu time across all tasks
	OverallCPUPercent float64 // cpu_all relative to app time
}

// Derive computes the display metrics for a snapshot. Pure function of its
// input; the snapshot is not mutated.
func Derive(s *Snapshot) (*Metrics, error) {
	if s.AppTimeUS == 0 {
		return nil, ErrNoAppTime
	}

	var cpuAll uint64
	for _, t := range s.Tasks {
		cpuAll += t.CPUTimeUS
	}

	m := &Metrics{
		Tasks:             make([]TaskMetrics, len(s.Tasks)),
		CPUAllUS:          cpuAll,
		OverallCPUPercent: float64(cpuAll) * 100 / float64(s.AppTimeUS),
	}
	for i, t := range s.Tasks {
		tm := &m.Tasks[i]
		if t.Count > 0 {
			tm.HasPerCall = true
			tm.CPUPerCallUS = float64(t.CPUTimeUS) / float64(t.Count)
			tm.LatePerCallUS = float64(t.LateTimeUS) / float64(t.Count)
		}
		if cpuAll > 0 {
			tm.HasPercent = true
			tm.CPUPercent = float64(t.CPUTimeUS) * 100 / float64(cpuAll)
		}
	}
	return m, nil
}

// FormatSchedule renders a schedule period in the largest unit that divides
// it evenly: whole seconds, then whole milliseconds, else raw microseconds.
func FormatSchedule(us int64) string {
	switch {
	case us != 0 && us%1_000_000 == 0:
		return fmt.Sprintf("%d s", us/1_000_000)
	case us != 0 && us%1_000 == 0:
		return fmt.Sprintf("%dms", us/1_000)
	default:
		return fmt.Sprintf("%dµs", us)
	}
}

// FormatUptime renders an uptime in seconds as HH:MM:SS. The hour field is
// zero-padded to 8 digits so multi-year uptimes keep the frame width stable.
func FormatUptime(sec uint64) string {
	h := sec / 3600
	rem := sec % 3600
	return fmt.Sprintf("%08d:%02d:%02d", h, rem/60, rem%60)
}
