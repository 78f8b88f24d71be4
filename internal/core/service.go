// Package core hosts the session façade: it authenticates users against a
// domain.Store and exposes the role-scoped operation set to the presentation
// layer, observing every call through the audit, metrics and tracing hooks.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartstock/internal/infra/persistence/memory"
	"smartstock/internal/report"
	"smartstock/pkg/domain"
)

// ReportExporter archives a rendered report.
type ReportExporter interface {
	Export(ctx context.Context, r report.Report, f report.Format) (report.Export, error)
}

// Service authenticates users and hands out sessions bound to one store.
type Service struct {
	store     domain.Store
	logger    Logger
	clock     Clock
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	exporter  ReportExporter
	threshold int
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger. The default audit recorder writes to it.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for audit and report timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAuditRecorder replaces the log-backed audit recorder.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithReportExporter enables ExportReport.
func WithReportExporter(e ReportExporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithLowStockThreshold sets the quantity at or below which an item counts as
// low stock.
func WithLowStockThreshold(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.threshold = n
		}
	}
}

// NewService constructs a service backed by store.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    noopLogger{},
		clock:     ClockFunc(time.Now),
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		threshold: domain.DefaultLowStockThreshold,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = LoggerAuditRecorder{Logger: s.logger}
	}
	return s
}

// NewInMemoryService returns a service over an empty in-memory store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() domain.Store { return s.store }

// LowStockThreshold returns the configured threshold.
func (s *Service) LowStockThreshold() int { return s.threshold }

// Login authenticates username and password. Unknown users and wrong
// passwords both yield domain.ErrAuthFailed.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	const op = "login"
	started := time.Now()
	id := s.newID()
	ctx = WithSessionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, op)

	role, ok, err := s.store.Authenticate(ctx, username, password)
	if err == nil && !ok {
		err = domain.ErrAuthFailed
	}
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	entry := AuditEntry{
		SessionID: id,
		Username:  username,
		Role:      string(role),
		Operation: op,
		Status:    AuditStatusSuccess,
		Duration:  time.Since(started),
		At:        s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		entry.Role = ""
		s.audit.Record(ctx, entry)
		return nil, err
	}
	s.audit.Record(ctx, entry)
	return &Session{svc: s, id: id, username: username, role: role}, nil
}

// Session is an authenticated user's handle on the operation set. Every
// method checks the role before touching the store.
type Session struct {
	svc      *Service
	id       string
	username string
	role     domain.Role
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Username returns the authenticated user.
func (s *Session) Username() string { return s.username }

// Role returns the session role.
func (s *Session) Role() domain.Role { return s.role }

// Can reports whether the session may perform op.
func (s *Session) Can(op domain.Operation) bool { return s.role.Can(op) }

// LowStockThreshold returns the threshold LowStock uses.
func (s *Session) LowStockThreshold() int { return s.svc.threshold }

// run authorizes op, then executes fn inside a span and records metrics and
// an audit entry. fn returns the id of the entity it touched, if any.
func (s *Session) run(ctx context.Context, op domain.Operation, fn func(context.Context) (int64, error)) error {
	started := time.Now()
	ctx = WithSessionID(ctx, s.id)
	entry := AuditEntry{
		SessionID: s.id,
		Username:  s.username,
		Role:      string(s.role),
		Operation: string(op),
		Status:    AuditStatusSuccess,
	}
	if !s.role.Can(op) {
		err := domain.ForbiddenError{Role: s.role, Operation: op}
		s.svc.metrics.Observe(ctx, string(op), false, time.Since(started))
		entry.Status = AuditStatusForbidden
		entry.Error = err.Error()
		entry.At = s.svc.clock.Now()
		s.svc.audit.Record(ctx, entry)
		return err
	}

	ctx, span := s.svc.tracer.Start(ctx, string(op))
	id, err := fn(ctx)
	span.End(err)
	elapsed := time.Since(started)
	s.svc.metrics.Observe(ctx, string(op), err == nil, elapsed)

	entry.EntityID = id
	entry.Duration = elapsed
	entry.At = s.svc.clock.Now()
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		var se *domain.StorageError
		if errors.As(err, &se) {
			s.svc.logger.Error("storage failure", "session", s.id, "operation", string(op), "error", err)
		}
	}
	s.svc.audit.Record(ctx, entry)
	return err
}

// ListItems returns items whose name contains filter, newest first.
func (s *Session) ListItems(ctx context.Context, filter string) ([]domain.Item, error) {
	var items []domain.Item
	err := s.run(ctx, domain.OpListItems, func(ctx context.Context) (int64, error) {
		var err error
		items, err = s.svc.store.ListItems(ctx, filter)
		return 0, err
	})
	return items, err
}

// GetItem returns one item.
func (s *Session) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	var item domain.Item
	err := s.run(ctx, domain.OpGetItem, func(ctx context.Context) (int64, error) {
		var err error
		item, err = s.svc.store.GetItem(ctx, id)
		return id, err
	})
	return item, err
}

// SuggestedPrices returns the default unit price for a sale (the item price)
// and for a purchase (70% of the item price).
func (s *Session) SuggestedPrices(ctx context.Context, id int64) (salePrice, unitCost float64, err error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	return item.Price, domain.SuggestedUnitCost(item.Price), nil
}

// ListTransactions returns transactions matching filter, newest first.
func (s *Session) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.run(ctx, domain.OpListTransactions, func(ctx context.Context) (int64, error) {
		var err error
		txs, err = s.svc.store.ListTransactions(ctx, filter)
		return 0, err
	})
	return txs, err
}

// Summarize totals transactions of kind within period.
func (s *Session) Summarize(ctx context.Context, kind domain.TransactionKind, period domain.Period) (domain.Summary, error) {
	var sum domain.Summary
	err := s.run(ctx, domain.OpSummarize, func(ctx context.Context) (int64, error) {
		var err error
		sum, err = s.svc.store.Summarize(ctx, kind, period)
		return 0, err
	})
	return sum, err
}

// LowStock returns items at or below the configured threshold, newest first.
func (s *Session) LowStock(ctx context.Context) ([]domain.Item, error) {
	var low []domain.Item
	err := s.run(ctx, domain.OpLowStock, func(ctx context.Context) (int64, error) {
		items, err := s.svc.store.ListItems(ctx, "")
		if err != nil {
			return 0, err
		}
		low = domain.LowStock(items, s.svc.threshold)
		return 0, nil
	})
	return low, err
}

// Report builds the reporting view: all items, low stock, and today's and
// all-time totals for sales and purchases.
func (s *Session) Report(ctx context.Context) (report.Report, error) {
	var rep report.Report
	err := s.run(ctx, domain.OpExportReport, func(ctx context.Context) (int64, error) {
		var err error
		rep, err = s.buildReport(ctx)
		return 0, err
	})
	return rep, err
}

// ExportReport builds the report and archives it in the configured format.
func (s *Session) ExportReport(ctx context.Context, f report.Format) (report.Export, error) {
	var out report.Export
	err := s.run(ctx, domain.OpExportReport, func(ctx context.Context) (int64, error) {
		if s.svc.exporter == nil {
			return 0, errors.New("report export is not configured")
		}
		rep, err := s.buildReport(ctx)
		if err != nil {
			return 0, err
		}
		out, err = s.svc.exporter.Export(ctx, rep, f)
		return 0, err
	})
	return out, err
}

func (s *Session) buildReport(ctx context.Context) (report.Report, error) {
	store := s.svc.store
	items, err := store.ListItems(ctx, "")
	if err != nil {
		return report.Report{}, err
	}
	var summaries []domain.Summary
	for _, kind := range []domain.TransactionKind{domain.KindSale, domain.KindPurchase} {
		for _, period := range []domain.Period{domain.PeriodToday, domain.PeriodAllTime} {
			sum, err := store.Summarize(ctx, kind, period)
			if err != nil {
				return report.Report{}, fmt.Errorf("summarize %s %s: %w", kind, period, err)
			}
			summaries = append(summaries, sum)
		}
	}
	txs, err := store.ListTransactions(ctx, domain.TransactionFilter{})
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(s.username, s.svc.clock.Now(), s.svc.threshold, items, summaries, txs), nil
}

// CreateItem adds an item and returns its id.
func (s *Session) CreateItem(ctx context.Context, name string, quantity int, price float64) (int64, error) {
	var id int64
	err := s.run(ctx, domain.OpCreateItem, func(ctx context.Context) (int64, error) {
		var err error
		id, err = s.svc.store.CreateItem(ctx, name, quantity, price)
		return id, err
	})
	return id, err
}

// UpdateItem overwrites an item's name, quantity and price.
func (s *Session) UpdateItem(ctx context.Context, id int64, name string, quantity int, price float64) error {
	return s.run(ctx, domain.OpUpdateItem, func(ctx context.Context) (int64, error) {
		return id, s.svc.store.UpdateItem(ctx, id, name, quantity, price)
	})
}

// DeleteItem removes an item. Its transactions are kept.
func (s *Session) DeleteItem(ctx context.Context, id int64) error {
	return s.run(ctx, domain.OpDeleteItem, func(ctx context.Context) (int64, error) {
		return id, s.svc.store.DeleteItem(ctx, id)
	})
}

// RecordSale sells quantity units of an item at unitPrice.
func (s *Session) RecordSale(ctx context.Context, itemID int64, quantity int, unitPrice float64) (int64, error) {
	var txID int64
	err := s.run(ctx, domain.OpRecordSale, func(ctx context.Context) (int64, error) {
		var err error
		txID, err = s.svc.store.RecordSale(ctx, itemID, quantity, unitPrice)
		return itemID, err
	})
	return txID, err
}

// RecordPurchase buys quantity units of an item at unitCost.
func (s *Session) RecordPurchase(ctx context.Context, itemID int64, quantity int, unitCost float64) (int64, error) {
	var txID int64
	err := s.run(ctx, domain.OpRecordPurchase, func(ctx context.Context) (int64, error) {
		var err error
		txID, err = s.svc.store.RecordPurchase(ctx, itemID, quantity, unitCost)
		return itemID, err
	})
	return txID, err
}

type sessionKey struct{}

// WithSessionID returns ctx carrying the session id for tracers and loggers.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFromContext returns the session id stored by WithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
