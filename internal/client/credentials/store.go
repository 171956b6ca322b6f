package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	repo "github.com/dmitrijs2005/healthkeeper/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/healthkeeper/internal/common"
	"github.com/dmitrijs2005/healthkeeper/internal/cryptox"
	"github.com/dmitrijs2005/healthkeeper/internal/logging"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyCurrentUser  = "currentUser"

	// saltKey holds the key-derivation salt in the clear.
	saltKey  = "__device_salt"
	saltSize = 16
)

// sessionKeys are the entries removed by ClearAll.
var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyCurrentUser}

var ErrUnsealed = errors.New("credential is not sealed")

type Store struct {
	repo   repo.Repository
	secret []byte
	log    logging.Logger

	mu  sync.Mutex
	key []byte
}

func New(r repo.Repository, secret []byte, log logging.Logger) *Store {
	return &Store{repo: r, secret: secret, log: log}
}

// deviceKey derives the sealing key on first use, creating the salt if the
// database has none. A failed attempt is retried on the next call.
func (s *Store) deviceKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	stored, err := s.repo.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}

	var salt []byte
	if stored != nil {
		salt = stored.Value
	} else {
		salt = common.GenerateRandByteArray(saltSize)
		if err := s.repo.Put(ctx, saltKey, repo.Secret{Value: salt}); err != nil {
			return nil, err
		}
	}

	key, err := cryptox.DeriveKey(s.secret, salt)
	if err != nil {
		return nil, err
	}
	s.key = key
	return key, nil
}

// Get returns the value stored under key. Any failure is logged and reported
// as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "credential read failed", "key", key, "error", err)
		return "", false
	}
	if v == nil {
		return "", false
	}
	return string(v), true
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.repo.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	if sealed.Nonce == nil {
		return nil, ErrUnsealed
	}

	k, err := s.deviceKey(ctx)
	if err != nil {
		return nil, err
	}
	plain, err := cryptox.Open(sealed.Value, sealed.Nonce, k)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential: %w", err)
	}
	return plain, nil
}

// Set seals and stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	k, err := s.deviceKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to derive device key: %w", err)
	}
	ct, nonce, err := cryptox.Seal([]byte(value), k)
	if err != nil {
		return fmt.Errorf("failed to seal credential: %w", err)
	}
	return s.repo.Put(ctx, key, repo.Secret{Value: ct, Nonce: nonce})
}

// Delete removes key. Failures are logged and swallowed.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.repo.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "credential delete failed", "key", key, "error", err)
	}
}

// ClearAll removes every session entry. Each deletion is attempted
// independently so a partial failure never blocks logout.
func (s *Store) ClearAll(ctx context.Context) {
	for _, k := range sessionKeys {
		s.Delete(ctx, k)
	}
}

func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.Get(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.Get(ctx, KeyRefreshToken)
}

func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.Set(ctx, KeyAccessToken, token)
}

func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.Set(ctx, KeyRefreshToken, token)
}

// CurrentUser returns the cached profile. A value that does not decode is
// deleted and reported as absent.
func (s *Store) CurrentUser(ctx context.Context) (*models.UserProfile, bool) {
	raw, ok := s.Get(ctx, KeyCurrentUser)
	if !ok {
		return nil, false
	}

	var u models.UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn(ctx, "cached user is corrupt, discarding", "error", err)
		s.Delete(ctx, KeyCurrentUser)
		return nil, false
	}
	return &u, true
}

func (s *Store) SetCurrentUser(ctx context.Context, u *models.UserProfile) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	return s.Set(ctx, KeyCurrentUser, string(b))
}
