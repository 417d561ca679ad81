package publish

// State is a step of the publish state machine.
type State int

const (
	StateIdle State = iota
	StateLockAcquired
	StateBuilding
	StateVerifying
	StateCommitted
	StateRolledBack
	StateAborted
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateLockAcquired: "lock_acquired",
	StateBuilding:     "building",
	StateVerifying:    "verifying",
	StateCommitted:    "committed",
	StateRolledBack:   "rolled_back",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateAborted
}
