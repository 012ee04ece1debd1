package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHandleReloadKeepsLastGoodDataset(t *testing.T) {
	path := writeCSV(t, "CarPrice.csv", carCSV)
	h := NewHandle(path, Options{})

	first := h.Current()
	if first.Err != nil || first.Dataset == nil {
		t.Fatalf("initial load failed: %v", first.Err)
	}

	if err := os.WriteFile(path, []byte("a,b\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if h.Current() != first {
		t.Fatal("failed reload should keep the previous snapshot")
	}

	if err := os.WriteFile(path, []byte("highwaympg,curbweight,horsepower\n30,2500,100\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rows, _ := h.Current().Dataset.Shape(); rows != 1 {
		t.Fatalf("expected reloaded dataset with 1 row, got %d", rows)
	}
}

func TestHandleStartsUnloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CarPrice.csv")
	h := NewHandle(path, Options{})
	if snap := h.Current(); !errors.Is(snap.Err, ErrDatasetNotFound) || snap.Dataset != nil {
		t.Fatalf("expected not-found snapshot, got %+v", snap)
	}

	if err := os.WriteFile(path, []byte(carCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if h.Current().Dataset == nil {
		t.Fatal("dataset should be available after the file appears")
	}
}
