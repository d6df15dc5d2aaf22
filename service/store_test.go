package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
)

func TestMemoryStorePutAndGet(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	contract := &model.Contract{
		ID:          "test-id-1",
		FileName:    "test.pdf",
		ArtistEmail: "artist@example.com",
		LabelEmail:  "label@example.com",
		CreatedAt:   time.Now(),
	}

	if err := store.Put(ctx, contract); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, err := store.Get(ctx, "test-id-1")
	if err != nil {
		t.Fatalf("Expected to retrieve contract: %v", err)
	}
	if retrieved.FileName != "test.pdf" {
		t.Errorf("Expected filename test.pdf, got %s", retrieved.FileName)
	}
	if retrieved.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}

	_, err = store.Get(ctx, "non-existent")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for non-existent contract, got %v", err)
	}
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	store.Put(ctx, &model.Contract{ID: "dup", FileName: "first.pdf", CreatedAt: time.Now()})
	store.Put(ctx, &model.Contract{ID: "dup", FileName: "second.pdf", CreatedAt: time.Now()})

	got, err := store.Get(ctx, "dup")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FileName != "second.pdf" {
		t.Errorf("Expected second write to win, got %s", got.FileName)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 contract, got %d", store.Count())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	original := &model.Contract{ID: "copy", FileName: "a.pdf", CreatedAt: time.Now()}
	store.Put(ctx, original)
	original.FileName = "mutated.pdf"

	got, _ := store.Get(ctx, "copy")
	got.FileName = "also-mutated.pdf"

	again, _ := store.Get(ctx, "copy")
	if again.FileName != "a.pdf" {
		t.Errorf("Expected stored record to be isolated from callers, got %s", again.FileName)
	}
}

func TestMemoryStoreAutoCleanup(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		store.Put(ctx, &model.Contract{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	if store.Count() != 3 {
		t.Errorf("Expected 3 contracts after cleanup, got %d", store.Count())
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, model.ErrNotFound) {
		t.Error("Expected oldest contract 'a' to be removed")
	}
	if _, err := store.Get(ctx, "b"); !errors.Is(err, model.ErrNotFound) {
		t.Error("Expected second oldest contract 'b' to be removed")
	}
	if _, err := store.Get(ctx, "e"); err != nil {
		t.Error("Expected newest contract 'e' to be kept")
	}
}

func TestMemoryStoreUnlimitedContracts(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Put(ctx, &model.Contract{ID: string(rune('a' + i)), CreatedAt: time.Now()})
	}

	if store.Count() != 10 {
		t.Errorf("Expected 10 contracts, got %d", store.Count())
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("c-%d", i%5)
		go func() {
			defer wg.Done()
			store.Put(ctx, &model.Contract{ID: id, FileName: id + ".pdf"})
		}()
		go func() {
			defer wg.Done()
			store.Get(ctx, id)
		}()
	}
	wg.Wait()

	if store.Count() != 5 {
		t.Errorf("Expected 5 contracts, got %d", store.Count())
	}
}
