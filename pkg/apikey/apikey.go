package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// Record is a stored API key: only the hash of the raw credential is kept.
type Record struct {
	KeyHash   string
	TenantId  int64
	Scopes    string // comma separated
	ExpiresAt int64  // unix milli, 0 means no expiry
}

// Store looks up API key records by credential hash.
// Returns (nil, nil) when no record matches.
type Store interface {
	GetByHash(ctx context.Context, keyHash string) (*Record, error)
}

// Validator validates raw bearer credentials against the store
type Validator struct {
	store Store
}

// NewValidator creates a new Validator
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// HashKey hashes a raw credential for storage and lookup
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Generate creates a new raw API key. Callers persist HashKey(raw), never raw.
func Generate() string {
	return "cbk_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Validate checks the raw key and required scope, returning the matching
// record or a rejection error.
func (v *Validator) Validate(ctx context.Context, rawKey, scope string) (*Record, error) {
	if rawKey == "" {
		return nil, errcode.ErrApiKeyInvalid
	}

	rec, err := v.store.GetByHash(ctx, HashKey(rawKey))
	if err != nil {
		return nil, errcode.ErrInternalServer.Wrap(err)
	}
	if rec == nil {
		return nil, errcode.ErrApiKeyInvalid
	}

	if rec.ExpiresAt > 0 && rec.ExpiresAt < time.Now().UnixMilli() {
		return nil, errcode.ErrApiKeyExpired
	}

	if scope != "" && !rec.HasScope(scope) {
		return nil, errcode.ErrScopeMissing
	}

	return rec, nil
}

// HasScope reports whether the record carries the given scope
func (r *Record) HasScope(scope string) bool {
	for _, s := range strings.Split(r.Scopes, ",") {
		if strings.TrimSpace(s) == scope {
			return true
		}
	}
	return false
}
