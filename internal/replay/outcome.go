package replay

// Status is the terminal result of replaying one window record.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Reason explains a failed or skipped outcome.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoPath          Reason = "no_path"
	ReasonLaunchError     Reason = "launch_error"
	ReasonWindowNotFound  Reason = "window_not_found"
	ReasonRelocationError Reason = "relocation_error"
	ReasonCancelled       Reason = "cancelled"
)

// State is the position of one record in its replay lifecycle:
// pending → launching → awaiting_window → locating → relocating → terminal.
type State string

const (
	StatePending        State = "pending"
	StateLaunching      State = "launching"
	StateAwaitingWindow State = "awaiting_window"
	StateLocating       State = "locating"
	StateRelocating     State = "relocating"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateSkipped        State = "skipped"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

func terminalState(st Status) State {
	switch st {
	case StatusSucceeded:
		return StateSucceeded
	case StatusSkipped:
		return StateSkipped
	default:
		return StateFailed
	}
}

// Outcome is the per-window result of a replay.
type Outcome struct {
	Index        int    `json:"index" yaml:"index"`
	Title        string `json:"title" yaml:"title"`
	Path         string `json:"path" yaml:"path"`
	DesktopIndex uint32 `json:"desktop_index" yaml:"desktop_index"`
	ProcessID    uint32 `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	Status       Status `json:"status" yaml:"status"`
	Reason       Reason `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail       string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Progress is one state transition of one record.
type Progress struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Title   string   `json:"title"`
	State   State    `json:"state"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Observer receives every transition in order. It is called on the replay
// goroutine and should return quickly.
type Observer func(Progress)

// Counts aggregates outcomes by status.
type Counts struct {
	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// Summary counts outcomes by status.
func Summary(outcomes []Outcome) Counts {
	c := Counts{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			c.Succeeded++
		case StatusFailed:
			c.Failed++
		case StatusSkipped:
			c.Skipped++
		}
	}
	return c
}
