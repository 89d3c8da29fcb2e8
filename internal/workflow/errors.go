package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	// ErrMalformedToken indicates a button value that cannot be decoded into
	// a Token, or whose signature does not verify.
	ErrMalformedToken = errors.New("workflow: malformed token")

	// ErrTokenTooLarge indicates an encoded token that would not fit in a
	// button value.
	ErrTokenTooLarge = errors.New("workflow: token exceeds button value limit")

	// ErrUnknownAction indicates an action ID that maps to no decision.
	ErrUnknownAction = errors.New("workflow: unknown action")

	// ErrInvalidTransition indicates a status change the state machine does
	// not allow.
	ErrInvalidTransition = errors.New("workflow: invalid status transition")

	// ErrInvalidSubmission indicates a modal submission missing the approver
	// or the request text.
	ErrInvalidSubmission = errors.New("workflow: invalid submission")

	// ErrMissingTrigger indicates a command without a trigger ID.
	ErrMissingTrigger = errors.New("workflow: missing trigger id")

	// ErrMissingMessage indicates an activation without the coordinates of
	// the message that carried the button.
	ErrMissingMessage = errors.New("workflow: missing message coordinates")
)
