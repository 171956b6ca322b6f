// Package store opens the on-device SQLite database and brings its schema
// up to date with the embedded goose migrations.
package store
