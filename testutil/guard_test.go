package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"smartstock/internal/core", true},
		{"smartstock/pkg/domain", false},
		{"github.com/shopspring/decimal", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestStorageImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"smartstock/internal/infra/persistence/sqlite", true},
		{"database/sql", true},
		{"database/sql/driver", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"modernc.org/sqlitex", false},
		{"smartstock/internal/core", false},
		{"smartstock/internal/infra/blob/fs", false},
	}
	for _, c := range cases {
		if got := StorageImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, imp string) {
	t.Helper()
	src := fmt.Sprintf("package x\n\nimport _ %q\n", imp)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "smartstock/internal/core")
	writeGo(t, dir, "b.go", "strings")
	writeGo(t, dir, "a_test.go", "smartstock/internal/cli")

	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "smartstock/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var r recorder
	failIfDirectViolations(&r, "domain stays pure", viols)
	if !strings.Contains(r.msg, "domain stays pure") || !strings.Contains(r.msg, "a.go") {
		t.Fatalf("unexpected failure message %q", r.msg)
	}
	r = recorder{}
	failIfDirectViolations(&r, "none", nil)
	if r.msg != "" {
		t.Fatalf("expected no failure, got %q", r.msg)
	}
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
