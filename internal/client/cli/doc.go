// Package cli provides the interactive courier command-line client.
//
// It unlocks local state with a passphrase, registers with the relay and
// then runs a REPL for sending messages and attachments, contact discovery
// and inbox retrieval. A background watcher pings the relay and flips the
// prompt between online and offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli
