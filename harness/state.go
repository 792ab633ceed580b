package harness

import "time"

// RunState tracks where a harness run is in its lifecycle.
type RunState int

const (
	StateDisconnected RunState = iota
	StateConnecting
	StateConnected
	StateRunning
	StateDone
)

// String returns the string representation of the state
func (s RunState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateRunning:
		return "RUNNING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// StatusInfo is the broadcast form of the run state.
type StatusInfo struct {
	State       string `json:"state"`
	Message     string `json:"message"`
	Test        string `json:"test,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
	IsConnected bool   `json:"is_connected"`
}

// Event types published to observers.
const (
	EventStatus   = "status"
	EventResult   = "result"
	EventProgress = "progress"
	EventSummary  = "summary"
)

// Event is one item of the harness's live event stream.
type Event struct {
	Type     string          `json:"type"`
	Status   *StatusInfo     `json:"status,omitempty"`
	Result   *Result         `json:"result,omitempty"`
	Progress *StressProgress `json:"progress,omitempty"`
	Summary  *Summary        `json:"summary,omitempty"`
}

// EventFunc receives harness events as they happen.
type EventFunc func(Event)

// StressProgress is emitted every progressEvery stress iterations.
type StressProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

func (t *Tester) setState(s RunState, test string) {
	t.state = s
	t.emit(Event{Type: EventStatus, Status: t.statusInfo(test)})
}

func (t *Tester) statusInfo(test string) *StatusInfo {
	info := &StatusInfo{
		State:       t.state.String(),
		Test:        test,
		IsConnected: t.port != nil,
	}
	if !t.started.IsZero() {
		info.ElapsedMs = time.Since(t.started).Milliseconds()
	}

	switch t.state {
	case StateDisconnected:
		info.Message = "Disconnected"
	case StateConnecting:
		info.Message = "Opening transport..."
	case StateConnected:
		info.Message = "Ready to run tests"
	case StateRunning:
		info.Message = "Running: " + test
	case StateDone:
		info.Message = "Run complete"
	}
	return info
}

func (t *Tester) emit(ev Event) {
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}
