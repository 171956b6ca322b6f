// Package credentials is the key/value table behind the secure credential
// store. Values are stored as opaque blobs together with the nonce used to
// seal them; a nil nonce marks a value stored in the clear.
package credentials
