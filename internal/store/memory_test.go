package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"stylegen/internal/domain"
)

func TestMemoryStoreLatest(t *testing.T) {
	m := NewMemoryBatchStore()
	ctx := context.Background()
	base := time.Now()
	if err := m.SaveBatch(ctx, sampleBatch("b1", base, "a")); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveBatch(ctx, sampleBatch("b2", base.Add(time.Second), "b", "c")); err != nil {
		t.Fatal(err)
	}

	got, err := m.LatestBatch(ctx, domain.CatalogueStyles)
	if err != nil {
		t.Fatalf("LatestBatch error: %v", err)
	}
	if got.BatchID != "b2" || len(got.Items) != 2 {
		t.Fatalf("unexpected batch: %+v", got)
	}
	got.Items[0].Title = "mutated"
	again, _ := m.LatestBatch(ctx, domain.CatalogueStyles)
	if again.Items[0].Title != "b" {
		t.Fatalf("stored batch aliased by caller")
	}
	if n := m.Batches(domain.CatalogueStyles); n != 2 {
		t.Fatalf("Batches() = %d", n)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	_, err := NewMemoryBatchStore().LatestBatch(context.Background(), domain.CatalogueStyles)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
