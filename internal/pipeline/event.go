// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

// EventKind distinguishes the messages a pipeline run emits.
type EventKind int

const (
	EventProgress EventKind = iota
	EventLog
	EventApproval
	EventDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventLog:
		return "log"
	case EventApproval:
		return "approval"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one message on the run's event channel. Exactly one of Done or
// Error ends every run.
type Event struct {
	Kind     EventKind
	Stage    Stage
	Progress int
	Message  string

	// Evaluation is the pending evaluation of an approval event.
	Evaluation *types.Evaluation

	// Result is the success payload of a done event.
	Result *types.ReviewResult

	// Trace is the wrapped error chain of an error event.
	Trace string
}
