package wizard

import "errors"

var (
	ErrUnknownPurpose     = errors.New("unknown onboarding purpose")
	ErrStepOutOfRange     = errors.New("step index out of range")
	ErrUnknownTarget      = errors.New("unknown step data target")
	ErrInvalidStepData    = errors.New("invalid step data")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrWizardFinished     = errors.New("wizard already finished")
	ErrPurposeMismatch    = errors.New("domain payload does not match purpose")
)
