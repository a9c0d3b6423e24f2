package populator

import (
	"fmt"
	"time"
)

// State is the load state of one dataset file.
type State int

const (
	NotStarted State = iota
	Staged
	Imported
	Merged
	CleanedUp
	Failed
)

var stateNames = [...]string{
	NotStarted: "not_started",
	Staged:     "staged",
	Imported:   "imported",
	Merged:     "merged",
	CleanedUp:  "cleaned_up",
	Failed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in reports.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var transitions = map[State][]State{
	NotStarted: {Staged},
	Staged:     {Imported, Failed},
	Imported:   {Merged, Failed},
	Merged:     {CleanedUp, Failed},
}

// Tracker enforces the legal state transitions of one dataset load.
type Tracker struct {
	state   State
	history []State
}

// NewTracker returns a tracker in NotStarted.
func NewTracker() *Tracker {
	return &Tracker{state: NotStarted, history: []State{NotStarted}}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// History returns every state visited, in order.
func (t *Tracker) History() []State { return append([]State(nil), t.history...) }

// To moves to next. An illegal transition leaves the state unchanged and
// returns an error.
func (t *Tracker) To(next State) error {
	for _, s := range transitions[t.state] {
		if s == next {
			t.state = next
			t.history = append(t.history, next)
			return nil
		}
	}
	return fmt.Errorf("populator: illegal transition %s -> %s", t.state, next)
}

// Status values of a Report.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Report is returned to the invoker after a run.
type Report struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Strategy Strategy        `json:"strategy"`
	Datasets []DatasetReport `json:"datasets"`
	Error    string          `json:"error,omitempty"`
}

// DatasetReport describes one dataset of a run.
type DatasetReport struct {
	Name     string        `json:"name"`
	Table    string        `json:"table"`
	Source   string        `json:"source"`
	Staged   string        `json:"staged"`
	Copied   bool          `json:"copied"`
	State    State         `json:"state"`
	Imported int64         `json:"imported"`
	Merged   int64         `json:"merged"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}
