// Package outbox persists records created on the device until the server
// acknowledges them.
//
// Entries are appended with a client-generated idempotency key and a JSON
// payload, listed in insertion order while pending, and deleted once pushed.
package outbox
