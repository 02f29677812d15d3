package fsm

import "fmt"

type State string

type Event string

const (
	StateLoading       State = "loading"
	StateAwaitingMedia State = "awaiting_media"
	StateInProgress    State = "in_progress"
	StateFinishing     State = "finishing"
	StateComplete      State = "complete"
	StateCancelled     State = "cancelled"
	StateError         State = "error"
)

const (
	EventQuestionsLoaded Event = "questions_loaded"
	EventMediaReady      Event = "media_ready"
	EventFinish          Event = "finish"
	EventReconciled      Event = "reconciled"
	EventCancel          Event = "cancel"
	EventFail            Event = "fail"
	EventReset           Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}
	if event == EventCancel {
		switch current {
		case StateComplete, StateCancelled:
			return current, invalidTransition(current, event)
		default:
			return StateCancelled, nil
		}
	}

	switch current {
	case StateLoading:
		switch event {
		case EventQuestionsLoaded:
			return StateAwaitingMedia, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingMedia:
		switch event {
		case EventMediaReady:
			return StateInProgress, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateInProgress:
		switch event {
		case EventFinish:
			return StateFinishing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFinishing:
		switch event {
		case EventReconciled:
			return StateComplete, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateComplete:
		// Terminal: a finished interview accepts no further events.
		return current, invalidTransition(current, event)
	case StateCancelled:
		// Terminal: an abandoned interview accepts no further events.
		return current, invalidTransition(current, event)
	case StateError:
		switch event {
		case EventReset:
			return StateLoading, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
