package domain

// BuildState is the state of a watched build.
type BuildState uint8

const (
	// StateIdle waits for the next change.
	StateIdle BuildState = iota
	// StateBuilding runs a build generation.
	StateBuilding
	// StateReady holds the result of a successful generation.
	StateReady
	// StateFailed holds the errors of a failed generation.
	StateFailed
)

// String returns the name of the state.
func (s BuildState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
