// Package appstate keeps the logged-in session of a client between runs.
package appstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Shivanand-hulikatti/premierdelan/internal/auth"
)

var bucketSession = []byte("session")

var (
	keyToken   = []byte("token")
	keyProfile = []byte("profile")
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Profile is what the client knows about the logged-in account.
type Profile struct {
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token behind the profile has expired at now.
func (p Profile) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// Store is the persisted session. The zero value is not usable; call Open.
type Store struct {
	db  *bolt.DB
	now func() time.Time

	mu      sync.RWMutex
	token   string
	profile *Profile
}

// Open opens or creates the state file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init state: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Init loads the cached session. An expired session is discarded.
func (s *Store) Init() error {
	var (
		token   string
		profile *Profile
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		token = string(b.Get(keyToken))
		if raw := b.Get(keyProfile); raw != nil {
			profile = new(Profile)
			if err := json.Unmarshal(raw, profile); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if token == "" || profile == nil || profile.Expired(s.now()) {
		return s.Teardown()
	}

	s.mu.Lock()
	s.token, s.profile = token, profile
	s.mu.Unlock()
	return nil
}

// Login stores token and the profile read from its claims. The signature is
// not checked here; the API verifies every request.
func (s *Store) Login(token string) (Profile, error) {
	claims, err := auth.Decode(token)
	if err != nil {
		return Profile{}, err
	}
	if claims.Email == "" {
		return Profile{}, errors.New("token carries no email")
	}
	p := Profile{Email: claims.Email, Admin: claims.Admin}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	if p.Expired(s.now()) {
		return Profile{}, auth.ErrInvalidToken
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return Profile{}, fmt.Errorf("encode profile: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyProfile, raw)
	})
	if err != nil {
		return Profile{}, fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.token, s.profile = token, &p
	s.mu.Unlock()
	return p, nil
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns the logged-in profile.
func (s *Store) Profile() (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return Profile{}, ErrNotLoggedIn
	}
	return *s.profile, nil
}

// Teardown forgets the session, in memory and on disk.
func (s *Store) Teardown() error {
	s.mu.Lock()
	s.token, s.profile = "", nil
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Delete(keyToken); err != nil {
			return err
		}
		return b.Delete(keyProfile)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
