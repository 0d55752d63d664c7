package service

import "errors"

var (
	// ErrValidation marks a missing or invalid request field. Wrap with
	// fmt.Errorf("%w: ...") for the specific field.
	ErrValidation = errors.New("validation error")

	// ErrNoEligibleParticipants means every participant of the session has
	// already won in a prior round. Terminal for the session, not transient.
	ErrNoEligibleParticipants = errors.New("no eligible participants left")
)
