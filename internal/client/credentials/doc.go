// Package credentials is the secure key/value store for the session: the
// access token, the refresh token and the cached user profile.
//
// Values are sealed with AES-GCM under a key derived from the device secret
// and a per-database salt. Reads never fail upward: a storage or decryption
// failure is logged and reported as an absent value.
package credentials
