package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"carprice/ml"
	"carprice/pricing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndRecentPredictions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := pricing.Result{
			Features:  ml.Features{HighwayMPG: 30, Curbweight: 2500 + float64(i)*100, Horsepower: 100},
			Price:     10000 + float64(i),
			Formatted: "Rp 10.000,00",
			Cached:    i == 2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		id, err := store.SavePrediction(ctx, r)
		if err != nil {
			t.Fatalf("SavePrediction: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}
	}

	got, err := store.RecentPredictions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Price != 10002 || got[1].Price != 10001 {
		t.Fatalf("expected newest first, got %v then %v", got[0].Price, got[1].Price)
	}
	if !got[0].Cached || got[1].Cached {
		t.Fatalf("cached flag not round-tripped: %+v", got)
	}
	if got[0].Features.Curbweight != 2700 {
		t.Fatalf("unexpected features %+v", got[0].Features)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected timestamp %v", got[0].CreatedAt)
	}
}

func TestRecordKeepsServiceID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := pricing.Result{ID: "fixed-id", Price: 1, Formatted: "Rp 1,00"}
	if err := store.Record(ctx, r); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, r); err == nil {
		t.Fatal("duplicate id should be rejected")
	}

	got, err := store.RecentPredictions(ctx, 0)
	if err != nil {
		t.Fatalf("RecentPredictions: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fixed-id" {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if _, err := store.RecentPredictions(context.Background(), 5); err == nil {
		t.Fatal("expected error from nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
}
