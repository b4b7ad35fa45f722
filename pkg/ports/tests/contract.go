package tests

import (
	"context"
	"testing"

	"github.com/aretw0/guidebook/pkg/ports"
)

// LeafLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.LeafLoader. wantIDs lists the leaf ids in load order.
func LeafLoaderContractTest(t *testing.T, loader ports.LeafLoader, wantIDs []string) {
	t.Helper()

	t.Run("Load_Order", func(t *testing.T) {
		leaves, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error loading leaves: %v", err)
		}
		if len(leaves) != len(wantIDs) {
			t.Fatalf("expected %d leaves, got %d", len(wantIDs), len(leaves))
		}
		for i, l := range leaves {
			if l.ID != wantIDs[i] {
				t.Errorf("leaf %d: got id %q, want %q", i, l.ID, wantIDs[i])
			}
		}
	})

	t.Run("Load_Stable", func(t *testing.T) {
		first, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error loading leaves: %v", err)
		}
		second, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error loading leaves: %v", err)
		}
		if len(first) != len(second) {
			t.Errorf("repeated loads differ: %d vs %d leaves", len(first), len(second))
		}
	})

	t.Run("Load_Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := loader.Load(ctx); err == nil {
			t.Error("expected error for cancelled context, got nil")
		}
	})
}
