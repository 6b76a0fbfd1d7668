package installer

// StepResult is the outcome of one Step.
type StepResult struct {
	// Skip marks a step that had nothing to do, such as a file that is
	// already up to date. A skipped step counts as successful.
	Skip bool

	// Info is a short detail for the log: what was done, or why the step
	// was skipped.
	Info string

	Err error
}

// Outcome names the result for logs: "failed", "skipped" or "done".
func (r StepResult) Outcome() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Skip:
		return "skipped"
	default:
		return "done"
	}
}

// Success creates a successful StepResult with an optional info message.
func Success(info string) StepResult {
	return StepResult{Info: info}
}

// Skipped creates a StepResult for a step that had nothing to do.
// The reason is logged.
func Skipped(reason string) StepResult {
	return StepResult{Skip: true, Info: reason}
}

// Failed creates a StepResult with an error. The run stops at the first
// failed step, except during uninstall.
func Failed(err error) StepResult {
	return StepResult{Err: err}
}

// Step is one named unit of work in a lifecycle phase. Steps that change
// the system record the change in the run's Journal before making it, so
// a failure anywhere later can undo it.
type Step struct {
	Name   string // Shown as the progress status
	Action func() StepResult
}

// SimpleStep wraps a function that only reports an error.
func SimpleStep(name string, action func() error) Step {
	return Step{
		Name: name,
		Action: func() StepResult {
			if err := action(); err != nil {
				return Failed(err)
			}
			return Success("")
		},
	}
}
