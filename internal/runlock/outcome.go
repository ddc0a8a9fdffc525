package runlock

// Outcome is the result of a guarded run as seen by the caller and the exit code.
type Outcome int

const (
	Failed Outcome = iota
	Completed
	// Skipped means another instance held the lock and the body never ran.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case Completed:
		return 0
	case Skipped:
		return 3
	default:
		return 1
	}
}

// Ran reports whether the guarded body actually executed to completion.
func (o Outcome) Ran() bool { return o == Completed }

// ParseOutcome is the inverse of String; unknown values map to Failed.
func ParseOutcome(s string) Outcome {
	switch s {
	case "completed":
		return Completed
	case "skipped":
		return Skipped
	default:
		return Failed
	}
}
