package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// IdempotencyKeyHeaderName carries the client-generated key of an outbox
	// entry so a redelivered create can be recognised by the server.
	IdempotencyKeyHeaderName = "Idempotency-Key"
)
