package models

// Trigger state symbols as stored in the trigger documents.
const (
	StateWaiting       = "waiting"
	StatePaused        = "paused"
	StateAcquired      = "acquired"
	StateComplete      = "complete"
	StateError         = "error"
	StateBlocked       = "blocked"
	StatePausedBlocked = "paused-blocked"
	StateDeleted       = "deleted"
)

// TriggerState is the externally reported state of a trigger.
type TriggerState int

const (
	TriggerStateNone TriggerState = iota
	TriggerStateNormal
	TriggerStatePaused
	TriggerStateComplete
	TriggerStateError
	TriggerStateBlocked
)

func (s TriggerState) String() string {
	switch s {
	case TriggerStateNormal:
		return "normal"
	case TriggerStatePaused:
		return "paused"
	case TriggerStateComplete:
		return "complete"
	case TriggerStateError:
		return "error"
	case TriggerStateBlocked:
		return "blocked"
	default:
		return "none"
	}
}

// TriggerStateForSymbol maps a stored state symbol to the reported state.
// Unknown and deleted symbols report none; waiting and acquired report
// normal.
func TriggerStateForSymbol(symbol string) TriggerState {
	switch symbol {
	case "", StateDeleted:
		return TriggerStateNone
	case StateComplete:
		return TriggerStateComplete
	case StatePaused, StatePausedBlocked:
		return TriggerStatePaused
	case StateError:
		return TriggerStateError
	case StateBlocked:
		return TriggerStateBlocked
	default:
		return TriggerStateNormal
	}
}
