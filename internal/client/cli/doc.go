// Package cli provides the interactive glucokeeper command-line client.
//
// It wires configuration, the local cache, the remote document store and
// the reconciliation controller, then runs a REPL over them. Without a
// session everything is kept in the local cache; after signup or signin the
// local data is migrated to the account once and further changes are
// mirrored remotely.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli
