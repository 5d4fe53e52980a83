// Package observ collects wall-clock timings for the phases of a CLI
// run (loading a snapshot, canonicalizing, writing the result).
package observ

import (
	"fmt"
	"strings"
	"time"
)

type phase struct {
	name  string
	start time.Time
	dur   time.Duration
	note  string
}

// Timer accumulates the timed phases of one run.
type Timer struct {
	phases []phase
}

func NewTimer() *Timer { return &Timer{phases: make([]phase, 0, 4)} }

// Phase starts a timed phase and returns the function that finishes it,
// recording an optional note alongside the duration.
func (t *Timer) Phase(name string) func(note string) {
	idx := len(t.phases)
	t.phases = append(t.phases, phase{name: name, start: time.Now()})
	return func(note string) {
		p := &t.phases[idx]
		p.dur = time.Since(p.start)
		p.note = note
	}
}

// PhaseReport is the serializable form of one timed phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates phase durations in milliseconds.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report collects all phases plus the total duration.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.dur
		report.Phases[i] = PhaseReport{
			Name:       p.name,
			DurationMS: toMillis(p.dur),
			Note:       p.note,
		}
	}
	report.TotalMS = toMillis(total)
	return report
}

// Summary renders the report for the terminal, one phase per line.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
