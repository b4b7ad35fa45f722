package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMiddleware(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := middleware.NewRedactMiddleware([]string{"password", "^token"})(underlyingStore)

	ctx := context.Background()
	state := domain.NewChoiceState("dev")
	state.Set("db.md", "Postgres", true)
	state.Set("token.md", "abc", true)
	state.SetForm("conn", map[string]string{"host": "localhost", "db_password": "hunter2"}, true)
	state.Remove("cache.md")

	require.NoError(t, secureStore.Save(ctx, "dev", state))

	// The in-memory state is untouched.
	v, ok := state.Get("token.md")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	stored, err := underlyingStore.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"conn", "db.md"}, stored.Keys())
	assert.True(t, stored.IsRejected("cache.md"))
	assert.True(t, state.CreationTime().Equal(stored.CreationTime()))

	conn, _ := stored.Get("conn")
	form, err := domain.DecodeForm(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "localhost"}, form)
}

func TestChain(t *testing.T) {
	underlyingStore := NewMockStore()
	store := middleware.Chain(underlyingStore,
		middleware.NewRedactMiddleware([]string{"secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	state := domain.NewChoiceState("dev")
	state.Set("secret.md", "x", true)
	state.Set("db.md", "Postgres", true)
	require.NoError(t, store.Save(ctx, "dev", state))

	stored, err := underlyingStore.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{middleware.EnvelopeKey}, stored.Keys())

	loaded, err := store.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"db.md": "Postgres"}, loaded.Snapshot())
}
