package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func newIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func sampleChunks() []*models.ChildChunk {
	return []*models.ChildChunk{
		{ID: "c1", ParentID: "p1", Domain: "ocr_scan", Text: "Invoice INV-2023-0042 scanned from paper."},
		{ID: "c2", ParentID: "p2", Domain: "pdf_text", Text: "Invoice INV-2023-0042 summary exported as text."},
		{ID: "c3", ParentID: "p3", Domain: "general", Text: "Raft elects a leader with randomized timeouts."},
	}
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()
	if err := idx.Index(ctx, sampleChunks()); err != nil {
		t.Fatalf("Index: %v", err)
	}

	hits, err := idx.Search(ctx, "raft leader", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "c3" || hits[0].ParentID != "p3" {
		t.Fatalf("hits = %+v", hits)
	}

	n, err := idx.DocCount()
	if err != nil || n != 3 {
		t.Errorf("DocCount = %d, %v", n, err)
	}
}

func TestBleveIndex_SearchDomain(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, sampleChunks())

	all, _ := idx.Search(ctx, "invoice", "", 10)
	if len(all) != 2 {
		t.Fatalf("unscoped search returned %d hits, want 2", len(all))
	}

	scoped, err := idx.Search(ctx, "invoice", "ocr_scan", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].ID != "c1" || scoped[0].Domain != "ocr_scan" {
		t.Errorf("scoped hits = %+v", scoped)
	}

	none, _ := idx.Search(ctx, "invoice", "legal", 10)
	if len(none) != 0 {
		t.Errorf("unknown domain returned %d hits", len(none))
	}
}

func TestBleveIndex_SearchEmpty(t *testing.T) {
	idx := newIndex(t)
	hits, err := idx.Search(context.Background(), "   ", "", 10)
	if err != nil || hits != nil {
		t.Errorf("blank query = %v, %v", hits, err)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, sampleChunks())

	if err := idx.Delete(ctx, []string{"c3"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, _ := idx.Search(ctx, "raft", "", 10)
	if len(hits) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(hits))
	}
	if err := idx.Delete(ctx, nil); err != nil {
		t.Errorf("Delete(nil): %v", err)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bleve")
	ctx := context.Background()

	idx1, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx1.Index(ctx, sampleChunks())
	if err := idx1.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index path should exist: %v", err)
	}

	idx2, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx2.Close()
	hits, _ := idx2.Search(ctx, "raft", "", 10)
	if len(hits) != 1 {
		t.Errorf("reopened index returned %d hits, want 1", len(hits))
	}
}
