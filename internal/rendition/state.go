package rendition

// State is a step of one rendition attempt.
type State string

const (
	StateRequested  State = "requested"
	StateReading    State = "reading"
	StateConverting State = "converting"
	StateWriting    State = "writing"
	StateRecording  State = "recording"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

func (s State) String() string {
	return string(s)
}
