package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
	redisclient "github.com/angelmondragon/shopster-storefront/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when the visitor has no stored session.
var ErrNoSession = errors.New("no session")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(visitorID string) string
}

// Manager persists per-visitor auth sessions as JSON in Redis.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.AuthConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, client, cfg.SessionTTL)
}

func newManager(store sessionStore, keyer sessionKeyer, ttl time.Duration) (*Manager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: store, keyer: keyer, ttl: ttl}, nil
}

// Save stores value as the visitor's session, replacing any previous one.
func (m *Manager) Save(ctx context.Context, visitorID string, value any) error {
	if strings.TrimSpace(visitorID) == "" {
		return fmt.Errorf("visitor id is required")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(visitorID), payload, m.ttl)
}

// Load decodes the visitor's session into dest. ErrNoSession means nothing is stored.
func (m *Manager) Load(ctx context.Context, visitorID string, dest any) error {
	if strings.TrimSpace(visitorID) == "" {
		return ErrNoSession
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(visitorID))
	if err != nil {
		return wrapNotFound(err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	return nil
}

// Revoke deletes the visitor's session.
func (m *Manager) Revoke(ctx context.Context, visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return fmt.Errorf("visitor id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(visitorID))
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrNoSession
	}
	return err
}
