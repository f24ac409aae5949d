package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/storage"
)

func makeTurn(convID, reqID string, created int64) storage.TurnRecord {
	return storage.TurnRecord{
		ConversationID: convID,
		RequestID:      reqID,
		Model:          "gpt-4o-mini",
		Input:          "user: hi",
		Output:         "hello",
		CreatedAt:      created,
	}
}

func TestSaveAndListTurns(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	if err := store.SaveTurn(ctx, makeTurn("conv-1", "req-1", 100)); err != nil {
		t.Fatalf("SaveTurn(req-1) error = %v", err)
	}
	if err := store.SaveTurn(ctx, makeTurn("conv-1", "req-2", 200)); err != nil {
		t.Fatalf("SaveTurn(req-2) error = %v", err)
	}

	turns, err := store.ListTurns(ctx, "conv-1")
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].RequestID != "req-1" || turns[1].RequestID != "req-2" {
		t.Errorf("turn order = %q, %q; want req-1, req-2", turns[0].RequestID, turns[1].RequestID)
	}
}

func TestListTurnsNotFound(t *testing.T) {
	store := New(0)

	_, err := store.ListTurns(context.Background(), "conv-missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ListTurns() error = %v, want ErrNotFound", err)
	}
}

func TestSaveTurnDuplicateRequestID(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	if err := store.SaveTurn(ctx, makeTurn("conv-1", "req-1", 100)); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}
	err := store.SaveTurn(ctx, makeTurn("conv-1", "req-1", 200))
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate SaveTurn() error = %v, want ErrConflict", err)
	}
}

func TestSaveTurnKeepsUsage(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	rec := makeTurn("conv-1", "req-1", 100)
	rec.Usage = &api.Usage{InputTokens: 5, OutputTokens: 3, TotalTokens: 8}
	rec.Items = []byte(`[{"type":"function_call","name":"lookup"}]`)
	if err := store.SaveTurn(ctx, rec); err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	turns, err := store.ListTurns(ctx, "conv-1")
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if turns[0].Usage == nil || turns[0].Usage.TotalTokens != 8 {
		t.Errorf("Usage = %+v, want total 8", turns[0].Usage)
	}
	if string(turns[0].Items) != string(rec.Items) {
		t.Errorf("Items = %s, want %s", turns[0].Items, rec.Items)
	}
}

func TestLRUEviction(t *testing.T) {
	store := New(2)
	ctx := context.Background()

	store.SaveTurn(ctx, makeTurn("conv-1", "req-1", 100))
	store.SaveTurn(ctx, makeTurn("conv-2", "req-2", 200))

	// Touch conv-1 so conv-2 becomes the eviction candidate.
	store.SaveTurn(ctx, makeTurn("conv-1", "req-3", 300))

	// Admitting a third conversation evicts conv-2.
	store.SaveTurn(ctx, makeTurn("conv-3", "req-4", 400))

	if _, err := store.ListTurns(ctx, "conv-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("conv-2 should be evicted, got %v", err)
	}
	if _, err := store.ListTurns(ctx, "conv-1"); err != nil {
		t.Errorf("conv-1 should survive eviction: %v", err)
	}
	if _, err := store.ListTurns(ctx, "conv-3"); err != nil {
		t.Errorf("conv-3 should be present: %v", err)
	}

	// Evicted request ids are reusable again.
	if err := store.SaveTurn(ctx, makeTurn("conv-4", "req-2", 500)); err != nil {
		t.Errorf("reusing evicted request id should succeed: %v", err)
	}
}

func TestListTurnsReturnsCopy(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	store.SaveTurn(ctx, makeTurn("conv-1", "req-1", 100))

	turns, _ := store.ListTurns(ctx, "conv-1")
	turns[0].Output = "mutated"

	again, _ := store.ListTurns(ctx, "conv-1")
	if again[0].Output != "hello" {
		t.Errorf("Output = %q, internal state mutated through returned slice", again[0].Output)
	}
}

func TestHealthCheckAndClose(t *testing.T) {
	store := New(0)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestManyConversations(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		convID := fmt.Sprintf("conv-%d", i)
		if err := store.SaveTurn(ctx, makeTurn(convID, fmt.Sprintf("req-%d", i), int64(i))); err != nil {
			t.Fatalf("SaveTurn(%s) error = %v", convID, err)
		}
	}

	for i := 0; i < 50; i++ {
		if _, err := store.ListTurns(ctx, fmt.Sprintf("conv-%d", i)); err != nil {
			t.Errorf("ListTurns(conv-%d) error = %v", i, err)
		}
	}
}
