package render

import (
	"strings"
	"testing"

	"mutop/stat"
)

func sampleSnapshot(t *testing.T) (*stat.Snapshot, *stat.Metrics) {
	t.Helper()
	payload := `{"dt":1,"syt":2,"apt":400,"upt":3661,"mem":1024,` +
		`"tsks":2,"tdt":[["A",1,1000,10,100,5],["B",2,2000,0,300,0]]}`
	s, err := stat.Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	m, err := stat.Derive(s)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return s, m
}

func TestFrameLayout(t *testing.T) {
	s, m := sampleSnapshot(t)
	frame, lines, err := Frame(s, m)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}

	rule := strings.Repeat("-", 73)
	want := []string{
		rule,
		"ID Task name    Schedule   Cnt    task rel time  cputime/call   late/call",
		rule,
		" 1 A                 1ms    10 25.000% ██▌            10.00µs      0.50µs",
		" 2 B                 2ms     0 ",
		rule,
		"Free memory       1024 bytes, uptime: 00000001:01:01",
		"CPU: 100.000%    | Δ: 1µs, OS: 2µs, App: 400µs",
		rule,
	}
	got := strings.Split(strings.TrimSuffix(frame, "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("frame line count mismatch: got %d want %d\n%s", len(got), len(want), frame)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame line %d mismatch:\ngot  %q\nwant %q", i, got[i], want[i])
		}
	}
	if lines != len(want) {
		t.Fatalf("reported line count mismatch: got %d want %d", lines, len(want))
	}
}

func TestFrameIdempotent(t *testing.T) {
	s, m := sampleSnapshot(t)
	first, n1, err := Frame(s, m)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	second, n2, err := Frame(s, m)
	if err != nil {
		t.Fatalf("second Frame failed: %v", err)
	}
	if first != second || n1 != n2 {
		t.Fatalf("repeated render differs: %d vs %d lines", n1, n2)
	}
}

func TestFrameTruncatesLongNames(t *testing.T) {
	s := &stat.Snapshot{
		Tasks: []stat.TaskSample{
			{Name: "averylongtaskname", ID: 1, SchedulePeriodUS: 250, Count: 1, CPUTimeUS: 10},
		},
		AppTimeUS: 100,
	}
	m, err := stat.Derive(s)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	frame, _, err := Frame(s, m)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if strings.Contains(frame, "averylongtaskname") {
		t.Fatalf("task name was not truncated:\n%s", frame)
	}
	if !strings.Contains(frame, "averylongtas ") {
		t.Fatalf("expected 12-char truncated name in frame:\n%s", frame)
	}
}

func TestFrameBlankPercentWhenNoCPUTime(t *testing.T) {
	// Tasks ran but consumed no measurable cpu time: percent is undefined
	// and the bar stays empty instead of rendering a numeric zero.
	s := &stat.Snapshot{
		Tasks: []stat.TaskSample{
			{Name: "idle", ID: 3, SchedulePeriodUS: 1000, Count: 5},
		},
		AppTimeUS: 100,
	}
	m, err := stat.Derive(s)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	frame, _, err := Frame(s, m)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if !strings.Contains(frame, " 3 idle              1ms     5       %") {
		t.Fatalf("expected blank percent field:\n%s", frame)
	}
	if strings.Contains(frame, "█") {
		t.Fatalf("expected empty bar when aggregate cpu time is zero:\n%s", frame)
	}
}
