package verify

import "fmt"

// StepError tags a failure with the step that produced it. Err wraps one of
// the browser error kinds whenever the failure came from the page.
type StepError struct {
	Step int
	Name string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
