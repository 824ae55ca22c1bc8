package submissions

import "errors"

var (
	// ErrNoActiveActivity rejects submissions outside a live activity.
	ErrNoActiveActivity = errors.New("no active activity")
	// ErrInstructorSubmit rejects instructors; they review, they do not submit.
	ErrInstructorSubmit = errors.New("instructors cannot submit work")
	// ErrUnauthorized rejects callers lacking the submission:create scope.
	ErrUnauthorized = errors.New("not permitted to submit for this classroom")
	// ErrRateLimited rejects re-submission inside the cooldown window.
	ErrRateLimited = errors.New("submitted too recently, slow down")
	// ErrConflictingVersion reports a lost race against a concurrent
	// submission that claimed the same version. The caller resubmits; the
	// service never retries on its own since a blind retry could reorder
	// versions.
	ErrConflictingVersion = errors.New("submission version conflict")
)
