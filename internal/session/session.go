// Package session provides Valkey-backed view sessions. A view session
// holds one client's presentation state (selected category, expanded
// nodes, open form) so it survives page reloads and tree rebuilds. Sessions
// are identified by a cookie and stored as JSON in Valkey with automatic
// TTL expiry.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"ruletracker/internal/categorytree"
)

const (
	// CookieName is the name of the session cookie sent to the client.
	CookieName = "rt_view"

	// DefaultTTL is how long an idle view session lives in Valkey.
	DefaultTTL = 30 * 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey.
type Data struct {
	View      categorytree.View `json:"view"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// secure marks the cookie HTTPS-only.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
		secure: secure,
	}
}

// Create generates a new session, stores it in Valkey, and sets the
// session cookie on the response. Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()
	if err := s.Save(ctx, id, data); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})

	return id, nil
}

// get returns the session stored under id, or nil if it expired or
// never existed.
func (s *Store) get(ctx context.Context, id string) (*Data, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &data, nil
}

// Load returns the request's session, creating an empty one (and setting
// its cookie) when the request has none or it has expired.
func (s *Store) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *Data, error) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		data, err := s.get(ctx, cookie.Value)
		if err != nil {
			return "", nil, err
		}
		if data != nil {
			return cookie.Value, data, nil
		}
	}

	data := &Data{}
	id, err := s.Create(ctx, w, data)
	if err != nil {
		return "", nil, err
	}
	return id, data, nil
}

// Save stores data under the given session ID and resets the TTL.
func (s *Store) Save(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Destroy removes the session from Valkey and clears the cookie. The
// cookie is left in place when Valkey cannot delete the session.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to destroy
	}

	if err := s.client.Del(ctx, keyPrefix+cookie.Value).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	// Expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return nil
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
