package pipeline

import "time"

// Stage describes a high-level phase of a canonicalization run.
type Stage string

const (
	// StageVerify is the structural pre-check of a function graph.
	StageVerify Stage = "verify"
	// StageCanon is the fixed-point rewrite of a function graph.
	StageCanon Stage = "canon"
	// StageWrite is the snapshot write-back.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the function is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the function is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the function is done.
	StatusDone Status = "done"
	// StatusError indicates the function failed.
	StatusError Status = "error"
)

// Event reports progress for one function, or for the whole run when
// Func is empty.
type Event struct {
	Func    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
