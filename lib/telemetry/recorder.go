package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelWarning
	LevelBroken
	LevelCount
)

type Report struct {
	Level  Level
	ID     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory, it is meant for tests
// that assert on what a component reported.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add(Report{Level: LevelBroken, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add(Report{Level: LevelWarning, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add(Report{Level: LevelDebug, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add(Report{Level: LevelCount, ID: id, Count: count})
}

func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}

// IDs returns the ids of all reports at level.
func (r *Recorder) IDs(level Level) []string {
	var out []string
	for _, report := range r.Reports() {
		if report.Level == level {
			out = append(out, report.ID)
		}
	}
	return out
}

// Contains reports whether text appears in any id or formatted param.
func (r *Recorder) Contains(text string) bool {
	for _, report := range r.Reports() {
		if strings.Contains(report.ID, text) {
			return true
		}
		for _, p := range report.Params {
			if strings.Contains(fmt.Sprint(p), text) {
				return true
			}
		}
	}
	return false
}
