package transcoder

// State is a pipeline stage
type State int

// Pipeline states
const (
	StateFetchingMetadata State = iota
	StateTransforming
	StateStreaming
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateFetchingMetadata: "fetching_metadata",
	StateTransforming:     "transforming",
	StateStreaming:        "streaming",
	StateDone:             "done",
	StateFailed:           "failed",
}

// String returns the metric label for s
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition can leave s
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// canTransition reports whether from -> to is a legal move. Stages only
// advance one at a time and any unfinished run may fail.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	return to == StateFailed || to == from+1
}
