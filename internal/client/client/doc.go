// Package client is the HTTP pipeline to the healthkeeper REST API.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the API interface): Login, RefreshToken,
//     CreateReport, ListWorkerReports and HealthCheck.
//  2. HTTPClient, its implementation over net/http. Every request carries
//     the stored access token as a bearer token when one is present. A 401
//     answer triggers a token refresh that is shared by every request that
//     failed meanwhile (single-flight); the request is then retried once with
//     the new token. When the refresh fails the stored credentials are wiped
//     and the session-expired hook is scheduled.
//  3. RequestScope, which cancels a superseded request.
//
// # Error Handling
//
// Failures other than cancellation are returned as *APIError with a short
// human-readable message. The error class is matched with errors.Is against
// ErrConnection, ErrTimeout, ErrServer, ErrUnauthorized, ErrRejected or
// ErrSessionExpired. A cancelled context surfaces as context.Canceled; use
// IsCanceled to keep it out of user-facing reporting.
package client
