package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage keys shared by both tiers.
const (
	keyUser    = "session.user"
	keyToken   = "session.token"
	keyRefresh = "session.refresh"
)

var errAbsent = errors.New("no record")

// Tier is one storage backend for the serialized identity and token.
// DurableTier survives restarts; MemoryTier lives for the process only.
type Tier interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Store keeps the identity and its token pair in exactly one of two tiers.
// Save with persistent=true targets the durable tier, otherwise the
// ephemeral one; the other tier is cleared first so a stale duplicate
// can never survive a save.
type Store struct {
	mu        sync.Mutex
	durable   Tier
	ephemeral Tier
}

// NewStore builds a Store over a durable file tier rooted at baseDir and
// an in-memory ephemeral tier. An empty baseDir resolves to the user's
// config directory.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		baseDir = filepath.Join(dir, "rentmyvenue")
	}
	durable, err := NewFileTier(baseDir)
	if err != nil {
		return nil, err
	}
	return &Store{durable: durable, ephemeral: NewMemoryTier()}, nil
}

// NewStoreWithTiers wires explicit tiers; used by tests.
func NewStoreWithTiers(durable, ephemeral Tier) *Store {
	return &Store{durable: durable, ephemeral: ephemeral}
}

// Save writes the identity and token pair into the chosen tier,
// clearing the other tier first. Idempotent: saving the same record
// twice leaves exactly one live copy.
func (s *Store) Save(identity *Identity, accessToken, refreshToken string, persistent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("serialize identity: %w", err)
	}

	target, other := s.ephemeral, s.durable
	if persistent {
		target, other = s.durable, s.ephemeral
	}

	if err := clearTier(other); err != nil {
		return err
	}
	if err := target.Set(keyUser, data); err != nil {
		return err
	}
	if err := target.Set(keyToken, []byte(accessToken)); err != nil {
		return err
	}
	return target.Set(keyRefresh, []byte(refreshToken))
}

// Load resolves the persisted identity: durable tier first, ephemeral as
// fallback. Returns the identity with its access and refresh tokens. A
// corrupt record is cleared and treated as absent, so a damaged store
// only costs the user a fresh sign-in.
func (s *Store) Load() (*Identity, string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tier := range []Tier{s.durable, s.ephemeral} {
		data, err := tier.Get(keyUser)
		if err != nil {
			continue
		}

		var identity Identity
		if err := json.Unmarshal(data, &identity); err != nil || !identity.Role.Valid() || identity.ID == "" {
			clearTier(tier)
			continue
		}

		accessToken := ""
		if raw, err := tier.Get(keyToken); err == nil {
			accessToken = string(raw)
		}
		refreshToken := ""
		if raw, err := tier.Get(keyRefresh); err == nil {
			refreshToken = string(raw)
		}
		return &identity, accessToken, refreshToken, true
	}
	return nil, "", "", false
}

// Clear removes the identity and token from both tiers unconditionally.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := clearTier(s.durable); err != nil {
		return err
	}
	return clearTier(s.ephemeral)
}

func clearTier(t Tier) error {
	if err := t.Delete(keyUser); err != nil {
		return err
	}
	if err := t.Delete(keyToken); err != nil {
		return err
	}
	return t.Delete(keyRefresh)
}

// FileTier stores each key as a file under a base directory.
type FileTier struct {
	dir string
}

func NewFileTier(dir string) (*FileTier, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileTier{dir: dir}, nil
}

func (t *FileTier) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errAbsent
		}
		return nil, err
	}
	return data, nil
}

func (t *FileTier) Set(key string, value []byte) error {
	return os.WriteFile(filepath.Join(t.dir, key), value, 0o600)
}

func (t *FileTier) Delete(key string) error {
	err := os.Remove(filepath.Join(t.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryTier is process-scoped storage, the analogue of a browser's
// tab-scoped session storage.
type MemoryTier struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{values: make(map[string][]byte)}
}

func (t *MemoryTier) Get(key string) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	value, ok := t.values[key]
	if !ok {
		return nil, errAbsent
	}
	return value, nil
}

func (t *MemoryTier) Set(key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = append([]byte(nil), value...)
	return nil
}

func (t *MemoryTier) Delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, key)
	return nil
}
