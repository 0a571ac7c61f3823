package apikey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

type memKeyStore struct {
	records map[string]*Record
}

func (s *memKeyStore) GetByHash(ctx context.Context, keyHash string) (*Record, error) {
	return s.records[keyHash], nil
}

func TestValidator_Validate(t *testing.T) {
	raw := Generate()
	store := &memKeyStore{records: map[string]*Record{
		HashKey(raw): {KeyHash: HashKey(raw), TenantId: 7, Scopes: "sync,admin"},
	}}
	v := NewValidator(store)
	ctx := context.Background()

	t.Run("valid key with scope", func(t *testing.T) {
		rec, err := v.Validate(ctx, raw, "sync")
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.TenantId)
	})

	t.Run("missing scope", func(t *testing.T) {
		_, err := v.Validate(ctx, raw, "billing")
		assert.ErrorIs(t, err, errcode.ErrScopeMissing)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := v.Validate(ctx, "cbk_nope", "sync")
		assert.ErrorIs(t, err, errcode.ErrApiKeyInvalid)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := v.Validate(ctx, "", "sync")
		assert.ErrorIs(t, err, errcode.ErrApiKeyInvalid)
	})
}

func TestValidator_ExpiredKey(t *testing.T) {
	raw := Generate()
	store := &memKeyStore{records: map[string]*Record{
		HashKey(raw): {
			KeyHash:   HashKey(raw),
			TenantId:  7,
			Scopes:    "sync",
			ExpiresAt: time.Now().Add(-time.Hour).UnixMilli(),
		},
	}}
	v := NewValidator(store)

	_, err := v.Validate(context.Background(), raw, "sync")
	assert.ErrorIs(t, err, errcode.ErrApiKeyExpired)
}

func TestRecord_HasScope(t *testing.T) {
	rec := &Record{Scopes: "sync, admin"}
	assert.True(t, rec.HasScope("sync"))
	assert.True(t, rec.HasScope("admin"), "whitespace around scopes is tolerated")
	assert.False(t, rec.HasScope("billing"))
}

func TestHashKey_Deterministic(t *testing.T) {
	assert.Equal(t, HashKey("abc"), HashKey("abc"))
	assert.NotEqual(t, HashKey("abc"), HashKey("abd"))
}
