// Package tokenstore persists per-poll anonymous voter tokens in a
// local bbolt file. The token is exclusively client-owned: the server
// accepts it as an identity but never invents or rewrites it.
package tokenstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// TokenTTL is informational: an older token is considered stale, but
// expiry never retroactively invalidates a vote already cast with it.
const TokenTTL = 30 * 24 * time.Hour

var bucketTokens = []byte("anon_tokens")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create token bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreate returns the token held for the poll, generating and
// persisting a fresh one on the first voting attempt.
func (s *Store) GetOrCreate(pollID uuid.UUID) (string, error) {
	var token string
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTokens)
		if existing := bucket.Get([]byte(pollID.String())); existing != nil {
			token = string(existing)
			return nil
		}
		token = generateToken()
		return bucket.Put([]byte(pollID.String()), []byte(token))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get or create token: %w", err)
	}
	return token, nil
}

func (s *Store) Has(pollID uuid.UUID) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketTokens).Get([]byte(pollID.String())) != nil
		return nil
	})
	return found, err
}

func (s *Store) Clear(pollID uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Delete([]byte(pollID.String()))
	})
}

// Expired reports whether the token's embedded creation timestamp is
// older than TokenTTL. Malformed tokens count as expired.
func Expired(token string, now time.Time) bool {
	parts := strings.Split(token, "_")
	if len(parts) != 3 || parts[0] != "anon" {
		return true
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.UnixMilli(ms)) > TokenTTL
}

// generateToken builds an anon_{creationMs}_{randomSuffix} token. The
// random suffix makes collisions between clients implausible; it is not
// meant to stop a client rewriting its own store.
func generateToken() string {
	suffix := make([]byte, 8)
	rand.Read(suffix)
	return fmt.Sprintf("anon_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
