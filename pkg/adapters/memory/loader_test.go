package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/guidebook/pkg/adapters/memory"
	"github.com/aretw0/guidebook/pkg/domain"
	contract "github.com/aretw0/guidebook/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	loader := memory.NewLoader(
		&domain.Leaf{ID: "start", Body: "echo hello"},
		&domain.Leaf{ID: "end", Body: "echo bye"},
	)

	contract.LeafLoaderContractTest(t, loader, []string{"start", "end"})
}

func TestInMemoryLoader_FromJSON(t *testing.T) {
	loader, err := memory.NewFromJSON([]byte(`{"leaves": [
		{"id": "a", "lang": "sh", "body": "echo a"},
		{"id": "b", "nesting": [{"kind": "choice", "group": "os", "member": 1, "title": "Linux"}]}
	]}`))
	require.NoError(t, err)

	contract.LeafLoaderContractTest(t, loader, []string{"a", "b"})

	leaves, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ChoiceMembership{Group: "os", Member: 1, Title: "Linux"}, leaves[1].Nesting[0])
}

func TestInMemoryLoader_InvalidJSON(t *testing.T) {
	_, err := memory.NewFromJSON([]byte(`{"leaves": [`))
	assert.Error(t, err)
}
