package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a correlation id is unknown (or belongs to another user).
	ErrSessionNotFound = errors.New("training session not found")
	// ErrSessionCompleted is returned when a completed session is submitted to again.
	ErrSessionCompleted = errors.New("training session already completed")
	// ErrSessionNotStarted is returned when answers reach a session that never left Idle.
	ErrSessionNotStarted = errors.New("training session not started")
	// ErrSessionConflict indicates a concurrent submission won the race for the same step.
	ErrSessionConflict = errors.New("training session changed concurrently")
	// ErrDuplicateResult indicates a result already exists for the correlation id.
	ErrDuplicateResult = errors.New("result already recorded for session")
	// ErrItemNotFound indicates an item id could not be resolved.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidRequest indicates a missing or malformed request field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidGameType is returned for a game type outside quiz/phishing/scenario.
	ErrInvalidGameType = errors.New("invalid game type")
	// ErrInvalidAnswer indicates a malformed answer payload.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrUnknownItem indicates an answer referenced an item outside the sampled set.
	ErrUnknownItem = errors.New("item is not part of this session")
	// ErrOutOfOrder indicates an answer arrived ahead of the current item.
	ErrOutOfOrder = errors.New("answer submitted out of order")
	// ErrDuplicateAnswer indicates the item was already answered.
	ErrDuplicateAnswer = errors.New("item already answered")
	// ErrIncompleteSubmission indicates a bulk submission that does not cover every item.
	ErrIncompleteSubmission = errors.New("submission does not cover every item")
	// ErrAnswerTooLate indicates the declared elapsed time exceeded the item budget.
	ErrAnswerTooLate = errors.New("answer exceeded the time limit")
)

var validationErrors = []error{
	ErrInvalidRequest,
	ErrInvalidGameType,
	ErrInvalidAnswer,
	ErrUnknownItem,
	ErrOutOfOrder,
	ErrDuplicateAnswer,
	ErrIncompleteSubmission,
	ErrAnswerTooLate,
	ErrSessionNotStarted,
}

// IsValidation reports whether err is a client-side rejection that left no state behind.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
