package invoicing

// State is a stage of one invoicing attempt.
type State string

const (
	StateStart          State = "START"
	StateDuplicateCheck State = "DUPLICATE_CHECK"
	StateResolvePartner State = "RESOLVE_PARTNER"
	StateAllocate       State = "ALLOCATE"
	StateBuild          State = "BUILD"
	StateSend           State = "SEND"
	StateParse          State = "PARSE"
	StateReconcile      State = "RECONCILE"
	StatePersist        State = "PERSIST"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

var terminalStates = map[State]bool{
	StateDone:   true,
	StateFailed: true,
}

// IsTerminal returns true when no further transition is possible.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
