package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartstock/internal/blob/core"
)

// KeyPrefix is the blob namespace reports are archived under.
const KeyPrefix = "reports/"

// Export describes an archived report.
type Export struct {
	Key    string
	Format Format
	Size   int64
	URL    string
}

// Exporter renders reports and archives them in a blob store. Keys are never
// reused: each export gets a timestamp plus a random suffix.
type Exporter struct {
	store core.Store
	newID func() string
}

// NewExporter returns an exporter writing to store.
func NewExporter(store core.Store) *Exporter {
	return &Exporter{store: store, newID: func() string { return uuid.NewString() }}
}

// Key returns the blob key for a report generated at t.
func (e *Exporter) Key(t time.Time, f Format) string {
	return fmt.Sprintf("%s%s-%s.%s", KeyPrefix, t.UTC().Format("20060102T150405Z"), e.newID(), f)
}

// Export renders r and stores it. The URL is left empty when the backend
// cannot produce one.
func (e *Exporter) Export(ctx context.Context, r Report, f Format) (Export, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r, f); err != nil {
		return Export{}, fmt.Errorf("render %s report: %w", f, err)
	}
	key := e.Key(r.GeneratedAt, f)
	info, err := e.store.Put(ctx, key, &buf, core.PutOptions{
		ContentType: f.ContentType(),
		Metadata:    map[string]string{"generated_by": r.GeneratedBy},
	})
	if err != nil {
		return Export{}, fmt.Errorf("store report: %w", err)
	}
	out := Export{Key: info.Key, Format: f, Size: info.Size}
	if u, err := e.store.URL(ctx, key, 0); err == nil {
		out.URL = u
	}
	return out, nil
}

// List returns archived reports, oldest first.
func (e *Exporter) List(ctx context.Context) ([]core.Info, error) {
	return e.store.List(ctx, KeyPrefix)
}
