package model

// GenerationStatus is the lifecycle state of the single in-flight generation.
type GenerationStatus int

const (
	// StatusIdle means no generation is running; Submit is accepted.
	StatusIdle GenerationStatus = iota
	// StatusSubmitting is the brief pre-stream state entered on accepting a
	// submission, before the backend call starts.
	StatusSubmitting
	// StatusStreaming means deltas are being consumed into the transcript.
	StatusStreaming
	// StatusError is a transient failure state; the controller returns to
	// Idle after recording the failure in the transcript.
	StatusError
)

func (s GenerationStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusStreaming:
		return "streaming"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
