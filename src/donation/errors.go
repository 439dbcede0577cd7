package donation

import "fmt"

// TransientNetworkError marks a failure that the next poll or download cycle
// may recover from. Workers log it and retry on their regular interval.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error during %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// AuthError marks a source as unusable until its credentials change. It is
// surfaced through the source state, never fatal.
type AuthError struct {
	SourceID string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for source %s: %v", e.SourceID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ResolutionError marks a single track's download or conversion failure.
// The track is marked failed; the queue keeps running.
type ResolutionError struct {
	TrackID string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve track %s: %v", e.TrackID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PersistenceError marks a failed state save or load. The engine keeps
// running in memory and retries on the next mutation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidTransitionError rejects a backward or unknown status transition.
// The mutation is dropped; queue state is unchanged.
type InvalidTransitionError struct {
	TrackID string
	From    TrackStatus
	To      TrackStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s for track %s", e.From, e.To, e.TrackID)
}
