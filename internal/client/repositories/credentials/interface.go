package credentials

import (
	"context"
)

// Secret is a stored value and the nonce it was sealed with.
type Secret struct {
	Value []byte
	Nonce []byte
}

type Repository interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) (*Secret, error)
	Put(ctx context.Context, key string, s Secret) error
	Delete(ctx context.Context, key string) error
}
