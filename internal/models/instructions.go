package models

// Misfire instruction codes shared by all trigger shapes. Shape-specific
// codes live with the shape implementations.
const (
	// MisfireInstructionIgnorePolicy disables misfire handling entirely;
	// the trigger fires as soon as it can, however late.
	MisfireInstructionIgnorePolicy = -1

	// MisfireInstructionSmartPolicy lets the trigger shape pick a
	// reasonable policy for itself.
	MisfireInstructionSmartPolicy = 0
)

// CompletedExecutionInstruction tells the store what to do with a trigger
// after its job finished executing.
type CompletedExecutionInstruction int

const (
	InstructionNoop CompletedExecutionInstruction = iota
	InstructionReExecuteJob
	InstructionSetTriggerComplete
	InstructionDeleteTrigger
	InstructionSetAllJobTriggersComplete
	InstructionSetTriggerError
	InstructionSetAllJobTriggersError
)

func (i CompletedExecutionInstruction) String() string {
	switch i {
	case InstructionReExecuteJob:
		return "re-execute-job"
	case InstructionSetTriggerComplete:
		return "set-trigger-complete"
	case InstructionDeleteTrigger:
		return "delete-trigger"
	case InstructionSetAllJobTriggersComplete:
		return "set-all-job-triggers-complete"
	case InstructionSetTriggerError:
		return "set-trigger-error"
	case InstructionSetAllJobTriggersError:
		return "set-all-job-triggers-error"
	default:
		return "noop"
	}
}
