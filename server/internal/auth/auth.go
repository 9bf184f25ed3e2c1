package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vattention/facio-superpowers/server/internal/database"
)

// KeyPrefix starts every issued API key
const KeyPrefix = "fcs_"

// ErrMalformedKey is returned for keys that are not in fcs_<id>_<secret> form
var ErrMalformedKey = errors.New("malformed API key")

type contextKey string

const apiKeyKey contextKey = "apiKey"

// KeyStore is the part of the database the middleware needs
type KeyStore interface {
	GetAPIKey(id string) (*database.APIKey, error)
}

// HashSecret hashes a key secret using bcrypt
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret compares a secret with a hash
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// GenerateAPIKey returns a new key record and the plaintext key to hand out once
func GenerateAPIKey(name string) (*database.APIKey, string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", err
	}
	secret := hex.EncodeToString(buf)

	hash, err := HashSecret(secret)
	if err != nil {
		return nil, "", err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := &database.APIKey{ID: id, Name: name, Hash: hash}
	return key, fmt.Sprintf("%s%s_%s", KeyPrefix, id, secret), nil
}

// ParseAPIKey splits a plaintext key into its public id and secret
func ParseAPIKey(key string) (id, secret string, err error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return "", "", ErrMalformedKey
	}
	id, secret, ok = strings.Cut(rest, "_")
	if !ok || id == "" || secret == "" {
		return "", "", ErrMalformedKey
	}
	return id, secret, nil
}

// Middleware authenticates API requests
type Middleware struct {
	keys   KeyStore
	logger logrus.FieldLogger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(keys KeyStore, logger logrus.FieldLogger) *Middleware {
	return &Middleware{keys: keys, logger: logger}
}

// RequireAPIKey middleware requires a valid API key in X-API-Key or
// Authorization: Bearer
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("X-API-Key")
		if presented == "" {
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				presented = bearer
			}
		}

		if presented == "" {
			unauthorized(w, "API key required")
			return
		}

		id, secret, err := ParseAPIKey(presented)
		if err != nil {
			unauthorized(w, "Invalid API key")
			return
		}

		key, err := m.keys.GetAPIKey(id)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				m.logger.WithError(err).Error("API key lookup failed")
			}
			unauthorized(w, "Invalid API key")
			return
		}
		if !CheckSecret(secret, key.Hash) {
			m.logger.WithField("key_id", id).Warn("API key secret mismatch")
			unauthorized(w, "Invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAPIKey returns the authenticated key from context
func GetAPIKey(ctx context.Context) *database.APIKey {
	if key, ok := ctx.Value(apiKeyKey).(*database.APIKey); ok {
		return key
	}
	return nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
