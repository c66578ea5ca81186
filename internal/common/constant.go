package common

// Logical keys of the local cache. Values are JSON documents.
const (
	CacheKeyUsers          = "users"
	CacheKeyEntries        = "entries"
	CacheKeySelectedUserID = "selectedUserId"
)

// SessionTokenKey is the metadata key holding the signed-in session token.
const SessionTokenKey = "session"
