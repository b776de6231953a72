// Package stat decodes muwerk scheduler statistics messages and derives the
// display metrics shown by the monitor.
//
// The muwerk scheduler publishes one JSON document per sample interval on
// <host>/$SYS/stat. Task records arrive as positional 6-element arrays
// (name, id, schedule period, call count, cpu time, late time); the field
// count of the first record doubles as the schema-version fingerprint, so a
// firmware speaking a different revision is detected before any value is
// misinterpreted.
package stat

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// taskRecordFields is the field count of a compatible task record.
const taskRecordFields = 6

// TaskSample is one task's counters for a single sample interval.
type TaskSample struct {
	Name             string // task name, display-truncated to 12 chars
	ID               int
	SchedulePeriodUS int64  // configured re-invocation interval
	Count            uint64 // invocations during the interval
	CPUTimeUS        uint64 // cpu time consumed during the interval
	LateTimeUS       uint64 // accumulated scheduling lateness
}

// Snapshot is one decoded statistics report covering all tasks plus the
// device-wide counters. Task order is the device-reported order and is
// significant for display.
type Snapshot struct {
	Tasks        []TaskSample
	UptimeS      uint64
	FreeMemBytes uint64
	DeltaUS      uint64 // wall time covered by the sample interval
	OSTimeUS     uint64 // time spent in the OS / system layer
	AppTimeUS    uint64 // time spent in application tasks
}

// DecodeError reports a payload that is not parseable as a statistics
// message. The raw payload is retained for diagnostic display. A single
// malformed message is droppable; the device keeps publishing.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed statistics message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IncompatibleError reports a well-formed payload whose shape does not match
// the supported schema revision, typically a firmware version skew.
// Continuing after one of these would risk misinterpreting follow-on data.
type IncompatibleError struct {
	Reason  string
	Payload []byte
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("incompatible statistics format: %s", e.Reason)
}

// wireSnapshot mirrors the scheduler's JSON output. Field names are the
// abbreviated keys the firmware emits.
type wireSnapshot struct {
	DeltaUS    uint64                  `json:"dt"`
	OSTimeUS   uint64                  `json:"syt"`
	AppTimeUS  uint64                  `json:"apt"`
	MainTimeUS uint64                  `json:"mat"` // emitted by the firmware, unused here
	UptimeS    uint64                  `json:"upt"`
	FreeMem    uint64                  `json:"mem"`
	TaskCount  *int                    `json:"tsks"`
	Tasks      [][]jsoniter.RawMessage `json:"tdt"`
}

// Decode parses a raw statistics payload into a validated Snapshot.
//
// Malformed JSON or bad field values yield a *DecodeError. A missing task
// count, a task record with other than 6 fields, or a task list whose length
// disagrees with the declared count yield a *IncompatibleError.
func Decode(payload []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}
	if w.TaskCount == nil {
		return nil, &IncompatibleError{Reason: "missing task count field", Payload: payload}
	}
	if len(w.Tasks) > 0 && len(w.Tasks[0]) != taskRecordFields {
		return nil, &IncompatibleError{
			Reason:  fmt.Sprintf("task record has %d fields, want %d", len(w.Tasks[0]), taskRecordFields),
			Payload: payload,
		}
	}
	if len(w.Tasks) != *w.TaskCount {
		return nil, &IncompatibleError{
			Reason:  fmt.Sprintf("declared %d tasks but received %d records", *w.TaskCount, len(w.Tasks)),
			Payload: payload,
		}
	}

	tasks := make([]TaskSample, 0, len(w.Tasks))
	for i, rec := range w.Tasks {
		if len(rec) != taskRecordFields {
			return nil, &IncompatibleError{
				Reason:  fmt.Sprintf("task record %d has %d fields, want %d", i, len(rec), taskRecordFields),
				Payload: payload,
			}
		}
		t, err := decodeTask(rec)
		if err != nil {
			return nil, &DecodeError{Payload: payload, Err: fmt.Errorf("task record %d: %w", i, err)}
		}
		tasks = append(tasks, t)
	}

	return &Snapshot{
		Tasks:        tasks,
		UptimeS:      w.UptimeS,
		FreeMemBytes: w.FreeMem,
		DeltaUS:      w.DeltaUS,
		OSTimeUS:     w.OSTimeUS,
		AppTimeUS:    w.AppTimeUS,
	}, nil
}

func decodeTask(rec []jsoniter.RawMessage) (TaskSample, error) {
	var t TaskSample
	if err := json.Unmarshal(rec[0], &t.Name); err != nil {
		return t, fmt.Errorf("name: %w", err)
	}
	if err := json.Unmarshal(rec[1], &t.ID); err != nil {
		return t, fmt.Errorf("id: %w", err)
	}
	if err := json.Unmarshal(rec[2], &t.SchedulePeriodUS); err != nil {
		return t, fmt.Errorf("schedule period: %w", err)
	}
	if t.SchedulePeriodUS < 0 {
		return t, fmt.Errorf("schedule period %d is negative", t.SchedulePeriodUS)
	}
	if err := json.Unmarshal(rec[3], &t.Count); err != nil {
		return t, fmt.Errorf("call count: %w", err)
	}
	if err := json.Unmarshal(rec[4], &t.CPUTimeUS); err != nil {
		return t, fmt.Errorf("cpu time: %w", err)
	}
	if err := json.Unmarshal(rec[5], &t.LateTimeUS); err != nil {
		return t, fmt.Errorf("late time: %w", err)
	}
	return t, nil
}
