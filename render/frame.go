package render

import (
	"bytes"
	"fmt"

	"mutop/stat"
)

const (
	ruleLine   = "-------------------------------------------------------------------------"
	headerLine = "ID Task name    Schedule   Cnt    task rel time  cputime/call   late/call"
	nameWidth  = 12
)

// Frame composes one full dashboard frame for a snapshot and its derived
// metrics. It returns the frame text (newline-terminated) and the number of
// lines it occupies, which the caller needs for cursor repositioning. Frame
// keeps no state: the same inputs always produce the same text.
func Frame(s *stat.Snapshot, m *stat.Metrics) (string, int, error) {
	var buf bytes.Buffer
	lines := 0

	writeLine := func(line string) {
		buf.WriteString(line)
		buf.WriteByte('\n')
		lines++
	}

	writeLine(ruleLine)
	writeLine(headerLine)
	writeLine(ruleLine)

	for i, t := range s.Tasks {
		tm := m.Tasks[i]
		if t.Count == 0 {
			// No invocations this interval: percent and per-call cost are
			// meaningless, so the row stops after the count column.
			writeLine(fmt.Sprintf("%2d %-12s %8s %5d ",
				t.ID, truncateName(t.Name), stat.FormatSchedule(t.SchedulePeriodUS), t.Count))
			continue
		}
		bar, err := Bar(tm.CPUPercent, tm.HasPercent)
		if err != nil {
			return "", 0, err
		}
		percent := "      "
		if tm.HasPercent {
			percent = fmt.Sprintf("%6.3f", tm.CPUPercent)
		}
		writeLine(fmt.Sprintf("%2d %-12s %8s %5d %s%% %-10s %9.2fµs %9.2fµs",
			t.ID, truncateName(t.Name), stat.FormatSchedule(t.SchedulePeriodUS), t.Count,
			percent, bar, tm.CPUPerCallUS, tm.LatePerCallUS))
	}

	writeLine(ruleLine)
	writeLine(fmt.Sprintf("Free memory %10d bytes, uptime: %s",
		s.FreeMemBytes, stat.FormatUptime(s.UptimeS)))
	writeLine(fmt.Sprintf("CPU: %6.3f%%    | Δ: %dµs, OS: %dµs, App: %dµs",
		m.OverallCPUPercent, s.DeltaUS, s.OSTimeUS, s.AppTimeUS))
	writeLine(ruleLine)

	return buf.String(), lines, nil
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > nameWidth {
		return string(r[:nameWidth])
	}
	return name
}
