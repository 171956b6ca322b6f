// Package services holds the application services of the client.
//
// SessionService owns the authentication state: login, logout, session
// restore and validation, and the role-keyed redirect that follows a
// transition to the authenticated state.
//
// SyncService reconciles the local cache with the API: it drains the outbox
// and pulls the reports of the signed-in user, on demand or whenever the
// device comes back online.
package services
