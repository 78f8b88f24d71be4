package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"smartstock/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func TestPutGetHeadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	info, err := s.Put(ctx, "reports/2026/inventory.csv", strings.NewReader("name,qty\nLaptop,10\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"generated_by": "admin"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 20 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	head, err := s.Head(ctx, "reports/2026/inventory.csv")
	if err != nil || head.ContentType != "text/csv" || head.Metadata["generated_by"] != "admin" {
		t.Fatalf("unexpected head %+v (%v)", head, err)
	}
	_, rc, err := s.Get(ctx, "reports/2026/inventory.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "name,qty\nLaptop,10\n" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "reports", "2026", "inventory.csv")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Put(ctx, "a.csv", strings.NewReader("first"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "a.csv", strings.NewReader("second"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, _ := s.Get(ctx, "a.csv")
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "first" {
		t.Fatalf("blob overwritten: %q", body)
	}
}

func TestConcurrentPutSameKeyHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "race.csv", strings.NewReader("x"), core.PutOptions{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful put, got %d", wins)
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../b", "x.meta"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestListDeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, k := range []string{"reports/b.xlsx", "reports/a.csv", "tmp/c"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := s.List(ctx, "reports/")
	if err != nil || len(list) != 2 || list[0].Key != "reports/a.csv" {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}
	if ok, err := s.Delete(ctx, "reports/a.csv"); !ok || err != nil {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "reports/a.csv"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, _, err := s.Get(ctx, "reports/a.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestURLPointsAtFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Put(ctx, "r.csv", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	u, err := s.URL(ctx, "r.csv", 0)
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/r.csv") {
		t.Fatalf("unexpected url %q (%v)", u, err)
	}
	if _, err := s.URL(ctx, "missing.csv", 0); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing url, got %v", err)
	}
}
