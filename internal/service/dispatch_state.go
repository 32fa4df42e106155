// internal/service/dispatch_state.go
package service

import (
	"fmt"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
)

type Phase string

const (
	PhaseComposing  Phase = "COMPOSING"
	PhasePreviewing Phase = "PREVIEWING"
	PhaseSending    Phase = "SENDING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
	PhaseScheduling Phase = "SCHEDULING"
	PhaseScheduled  Phase = "SCHEDULED"
	PhaseProcessing Phase = "PROCESSING"
	PhaseCancelled  Phase = "CANCELLED"
)

type Event string

const (
	EventEdit           Event = "edit"
	EventPreview        Event = "preview"
	EventSend           Event = "send"
	EventCreateFailed   Event = "create_failed"
	EventExecuted       Event = "executed"
	EventSendFailed     Event = "send_failed"
	EventSchedule       Event = "schedule"
	EventScheduled      Event = "scheduled"
	EventScheduleFailed Event = "schedule_failed"
	EventProcessing     Event = "processing"
	EventCancel         Event = "cancel"
	EventReset          Event = "reset"
)

// Transition is the complete phase table. Any pair not listed is rejected.
func Transition(from Phase, ev Event) (Phase, error) {
	switch from {
	case PhaseComposing, PhasePreviewing:
		switch ev {
		case EventEdit, EventReset:
			return PhaseComposing, nil
		case EventPreview:
			return PhasePreviewing, nil
		case EventSend:
			return PhaseSending, nil
		case EventSchedule:
			return PhaseScheduling, nil
		}
	case PhaseSending:
		switch ev {
		case EventExecuted:
			return PhaseCompleted, nil
		case EventSendFailed:
			return PhaseFailed, nil
		case EventCreateFailed:
			return PhaseComposing, nil
		}
	case PhaseCompleted, PhaseCancelled:
		switch ev {
		case EventReset, EventEdit:
			return PhaseComposing, nil
		}
	case PhaseFailed:
		switch ev {
		case EventSend:
			return PhaseSending, nil
		case EventReset, EventEdit:
			return PhaseComposing, nil
		}
	case PhaseScheduling:
		switch ev {
		case EventScheduled:
			return PhaseScheduled, nil
		case EventScheduleFailed:
			return PhaseComposing, nil
		}
	case PhaseScheduled:
		switch ev {
		case EventProcessing:
			return PhaseProcessing, nil
		case EventCancel:
			return PhaseCancelled, nil
		case EventReset, EventEdit:
			return PhaseComposing, nil
		}
	case PhaseProcessing:
		switch ev {
		case EventExecuted:
			return PhaseCompleted, nil
		case EventSendFailed:
			return PhaseFailed, nil
		case EventReset, EventEdit:
			return PhaseComposing, nil
		}
	default:
		return from, fmt.Errorf("%w: unknown phase %q", appErrors.ErrInvalidTransition, from)
	}
	return from, fmt.Errorf("%w: %s on %s", appErrors.ErrInvalidTransition, ev, from)
}

// State is what the operator sees. Payload fields are set according to Phase.
type State struct {
	Phase       Phase                   `json:"phase"`
	Composition *Composition            `json:"composition,omitempty"`
	Job         *model.BroadcastJob     `json:"job,omitempty"`
	Scheduled   *model.ScheduledMessage `json:"scheduled,omitempty"`
	Progress    int                     `json:"progress"`
	LastError   string                  `json:"lastError,omitempty"`
}

func (s State) clone() State {
	cp := s
	if s.Job != nil {
		job := *s.Job
		job.Recipients = append([]string(nil), s.Job.Recipients...)
		cp.Job = &job
	}
	if s.Scheduled != nil {
		msg := *s.Scheduled
		cp.Scheduled = &msg
	}
	return cp
}

// Progress milestones for a send-now.
const (
	ProgressCreated   = 25
	ProgressExecuting = 50
	ProgressDone      = 100
)
