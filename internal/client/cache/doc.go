// Package cache is the on-device store used by the sync engine: a read cache
// of reports fetched from the server and an outbox of reports created on the
// device and not yet acknowledged.
//
// The two tables are independent. Batch writes to the read cache run inside
// a single transaction so readers never observe a partially replaced cache.
package cache
