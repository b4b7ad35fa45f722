package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/guidebook/pkg/adapters/memory"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/persistence/middleware"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunProfileStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	original := domain.NewChoiceState("dev")
	original.Set("db.md", "Postgres", true)
	original.SetForm("conn", map[string]string{"password": "my-secret-sauce"}, true)
	original.Remove("cache.md")

	require.NoError(t, secureStore.Save(ctx, "dev", original))

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EnvelopeKey}, stored.Keys())
	assert.Empty(t, stored.Rejected())
	assert.Equal(t, "dev", stored.Name())

	loaded, err := secureStore.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, original.Snapshot(), loaded.Snapshot())
	assert.True(t, loaded.IsRejected("cache.md"))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	state := domain.NewChoiceState("rotation")
	state.Set("data", "encrypted-with-old-key", true)
	require.NoError(t, secureStoreOld.Save(ctx, "rotation", state))

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "rotation")
	require.NoError(t, err, "load with rotated key")
	v, _ := loaded.Get("data")
	assert.Equal(t, "encrypted-with-old-key", v)

	// Saving again re-encrypts with the new key.
	loaded.Set("data", "encrypted-with-new-key", true)
	require.NoError(t, secureStoreNew.Save(ctx, "rotation", loaded))

	_, err = secureStoreOld.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone must not decrypt new data")
}

func TestEncryptionMiddleware_PlaintextRefused(t *testing.T) {
	underlyingStore := NewMockStore()
	plain := domain.NewChoiceState("plain")
	plain.Set("k", "v", true)
	require.NoError(t, underlyingStore.Save(context.Background(), "plain", plain))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Load(context.Background(), "plain")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_NotFoundPassesThrough(t *testing.T) {
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(NewMockStore())
	_, err := secureStore.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKey(t *testing.T) {
	raw := generateKey(t)
	assert.Equal(t, raw, middleware.ParseKey(base64.StdEncoding.EncodeToString(raw)))

	derived := middleware.ParseKey("correct horse battery staple")
	assert.Len(t, derived, 32)
	assert.Equal(t, derived, middleware.ParseKey("correct horse battery staple"))
}
