package installer

import "context"

// Progress receives step progress. Percent runs from 0 to 100.
type Progress interface {
	Update(percent float64, status string)
}

// ProgressFunc adapts a function to the Progress interface.
type ProgressFunc func(percent float64, status string)

// Update calls f.
func (f ProgressFunc) Update(percent float64, status string) { f(percent, status) }

// RunSteps executes steps sequentially, reporting to p.
// Returns the first error encountered, or nil if all succeeded.
//
// Example:
//
//	steps := []installer.Step{
//	    installer.StepEnsureDir(targetDir),
//	    installer.StepDeleteFile(oldExe),
//	}
//	if err := installer.RunSteps(ctx, nil, steps); err != nil {
//	    return err
//	}
func RunSteps(ctx context.Context, p Progress, steps []Step) error {
	return RunStepsWithLogger(ctx, p, steps, nil)
}

// RunStepsWithLogger executes steps with logging to the provided Logger.
// The context is checked before each step; a cancelled context stops the
// run with ErrCancelled and leaves the remaining steps unexecuted.
func RunStepsWithLogger(ctx context.Context, p Progress, steps []Step, log *Logger) error {
	var first error
	cancelled := runStepsFn(ctx, p, steps, log, func(err error) bool {
		first = err
		return false
	})
	if cancelled {
		return ErrCancelled
	}
	return first
}

// RunAllSteps executes every step even when some fail, returning the
// failures as a list. Used for best-effort removal.
func RunAllSteps(ctx context.Context, p Progress, steps []Step, log *Logger) []error {
	var errs []error
	cancelled := runStepsFn(ctx, p, steps, log, func(err error) bool {
		errs = append(errs, err)
		return true
	})
	if cancelled {
		errs = append(errs, ErrCancelled)
	}
	return errs
}

// runStepsFn runs steps and hands each failure to onErr, which decides
// whether to continue. It reports whether the context stopped the run.
func runStepsFn(ctx context.Context, p Progress, steps []Step, log *Logger, onErr func(error) bool) bool {
	if p == nil {
		p = ProgressFunc(func(float64, string) {})
	}
	total := len(steps)

	for i, step := range steps {
		// Check for cancellation before each step
		if ctx.Err() != nil {
			log.Warn("Cancelled before step '%s'", step.Name)
			return true
		}

		p.Update(float64(i)/float64(total)*100, step.Name)
		log.Debug("Starting: %s", step.Name)

		result := step.Action()

		if result.Err != nil {
			log.Error("Step '%s' failed: %v", step.Name, result.Err)
			if !onErr(result.Err) {
				return false
			}
			continue
		}

		ev := log.Z().Info().Str("step", step.Name).Str("outcome", result.Outcome())
		if result.Info != "" {
			ev = ev.Str("detail", result.Info)
		}
		ev.Msg("Step finished")
	}

	p.Update(100, "Complete")
	return false
}
