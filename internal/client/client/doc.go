// Package client is the remote sync client: it maps users and entries onto
// per-account documents in a docstore.Store.
//
// # Layout
//
//	accounts/{accountID}/users/{userID}
//	accounts/{accountID}/entries/{entryID}
//
// Document bodies are JSON without the id, which is the last path segment.
//
// # Error Handling
//
// Every error returned by DocClient is a *common.RemoteError and matches
// common.ErrRemote. Transport failures additionally match
// common.ErrUnavailable. A Migrate that stops partway wraps a
// *common.MigrationError describing how far it got.
//
// Writes are upserts, so repeating a call (including Migrate) converges on
// the same remote content.
package client
