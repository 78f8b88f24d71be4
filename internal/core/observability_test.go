package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

func TestLoggerAuditRecorderLevels(t *testing.T) {
	log := &captureLogger{}
	rec := LoggerAuditRecorder{Logger: log}
	rec.Record(context.Background(), AuditEntry{Operation: "list_items", Status: AuditStatusSuccess})
	rec.Record(context.Background(), AuditEntry{Operation: "create_item", Status: AuditStatusForbidden, Error: "denied"})
	if len(log.calls) != 2 || log.calls[0] != "i:audit" || log.calls[1] != "w:audit" {
		t.Fatalf("unexpected log calls %v", log.calls)
	}
	LoggerAuditRecorder{}.Record(context.Background(), AuditEntry{})
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "record_sale", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "record_sale", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.Results["record_sale"]["success"] != 1 || snap.Results["record_sale"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["record_sale"] != 3 {
		t.Fatalf("unexpected durations %+v", snap.DurationsMS)
	}
	if v := expvar.Get(rec.Name()); v == nil || !strings.Contains(v.String(), "record_sale") {
		t.Fatalf("expected expvar export under %s", rec.Name())
	}
}

func TestJSONTracerWritesSessionTaggedSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := WithSessionID(context.Background(), "sess-1")
	_, span := tracer.Start(ctx, "delete_item")
	span.End(errors.New("item 9 not found"))

	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Status != "error" || entries[0].Session != "sess-1" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Operation != "delete_item" || decoded.Error != "item 9 not found" {
		t.Fatalf("unexpected encoded span %+v", decoded)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rec.Observe(context.Background(), "list_items", true, time.Millisecond)
	rec.Observe(context.Background(), "list_items", true, time.Millisecond)
	rec.Observe(context.Background(), "record_sale", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("list_items", "success")); got != 2 {
		t.Fatalf("expected 2 successful list_items, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("record_sale", "error")); got != 1 {
		t.Fatalf("expected 1 failed record_sale, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.latency); n != 2 {
		t.Fatalf("expected 2 latency series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
