package reconcile

import "fmt"

// State is the session lifecycle of a Controller.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateMigrating
	StateLoading
	StateReady
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateMigrating:
		return "migrating"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSignedOut:
		return "signed-out"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitional states reject mutations.
func (s State) transitional() bool {
	return s == StateAuthenticating || s == StateMigrating || s == StateLoading
}

// local states write through to the cache.
func (s State) local() bool {
	return s == StateAnonymous || s == StateSignedOut
}

// SyncStatus is the coarse signal shown next to the data while remote
// writes are in flight.
type SyncStatus int

const (
	SyncIdle SyncStatus = iota
	SyncSyncing
	SyncSynced
	SyncError
)

func (s SyncStatus) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncSyncing:
		return "syncing"
	case SyncSynced:
		return "synced"
	case SyncError:
		return "error"
	}
	return fmt.Sprintf("SyncStatus(%d)", int(s))
}

// Status is a point-in-time view of remote activity. Err is the failure
// that put Sync into SyncError.
type Status struct {
	Sync    SyncStatus
	Pending int
	Err     error
}
