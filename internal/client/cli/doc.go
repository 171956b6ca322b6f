// Package cli provides the interactive healthkeeper terminal client.
//
// The REPL drives a session manager, a local cache and a sync orchestrator.
// Reports are always written to the outbox first, so submitting works the
// same online and offline; a background connectivity watcher drains the
// outbox once the API becomes reachable.
//
// Commands:
//   - login / logout
//   - status
//   - submit, reports, pending
//   - sync, reload
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
