package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"smartstock/pkg/domain"
)

func newMockStore(t *testing.T, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	fixed := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	store := New(db, dialect, WithClock(func() time.Time { return fixed }))
	t.Cleanup(func() { _ = db.Close() })
	return store, mock
}

const (
	selectForSale     = `SELECT name, quantity FROM items WHERE id = ?`
	adjustStock       = `UPDATE items SET quantity = quantity + ? WHERE id = ?`
	appendTransaction = `INSERT INTO transactions (item_id, item_name, quantity, amount, kind, occurred_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`
)

func TestRecordSaleCommitsBothWrites(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Laptop", 10))
	mock.ExpectExec(regexp.QuoteMeta(adjustStock)).
		WithArgs(-3, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(appendTransaction)).
		WithArgs(int64(1), "Laptop", 3, 2999.97, "sale", "2026-10-15T09:30:00.000000000Z").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	id, err := store.RecordSale(context.Background(), 1, 3, 999.99)
	if err != nil {
		t.Fatalf("RecordSale failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected transaction id 42, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSaleRollsBackWhenAppendFails(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	injected := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Laptop", 10))
	mock.ExpectExec(regexp.QuoteMeta(adjustStock)).
		WithArgs(-3, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(appendTransaction)).WillReturnError(injected)
	mock.ExpectRollback()

	_, err := store.RecordSale(context.Background(), 1, 3, 999.99)
	var se *domain.StorageError
	if !errors.As(err, &se) || !errors.Is(err, injected) {
		t.Fatalf("expected StorageError wrapping injected failure, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("stock update was not rolled back: %v", err)
	}
}

func TestRecordPurchaseRollsBackWhenStockUpdateFails(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Rice (kg)", 50))
	mock.ExpectExec(regexp.QuoteMeta(adjustStock)).
		WithArgs(10, int64(5)).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	if _, err := store.RecordPurchase(context.Background(), 5, 10, 42); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSaleCommitFailureIsStorageError(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Laptop", 10))
	mock.ExpectExec(regexp.QuoteMeta(adjustStock)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(appendTransaction)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	_, err := store.RecordSale(context.Background(), 1, 1, 10)
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSaleInsufficientStockRollsBack(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Laptop", 2))
	mock.ExpectRollback()

	_, err := store.RecordSale(context.Background(), 1, 3, 999.99)
	var is domain.InsufficientStockError
	if !errors.As(err, &is) || is.Available != 2 {
		t.Fatalf("expected InsufficientStockError with available=2, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSaleValidationSkipsDatabase(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	var ve domain.ValidationError
	if _, err := store.RecordSale(context.Background(), 1, -1, 10); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no database calls expected: %v", err)
	}
}

func TestPostgresDialectRebindsAndLocks(t *testing.T) {
	store, mock := newMockStore(t, Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, quantity FROM items WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Coffee Jar", 75))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET quantity = quantity + $1 WHERE id = $2`)).
		WithArgs(5, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions (item_id, item_name, quantity, amount, kind, occurred_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)).
		WithArgs(int64(9), "Coffee Jar", 5, 875.0, "purchase", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	if _, err := store.RecordPurchase(context.Background(), 9, 5, 175); err != nil {
		t.Fatalf("RecordPurchase failed: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, quantity, price FROM items WHERE LOWER(name) LIKE $1 ESCAPE '\' ORDER BY id DESC`)).
		WithArgs("%lap%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "price"}).AddRow(int64(1), "Laptop", 10, 999.99))
	items, err := store.ListItems(context.Background(), "LAP")
	if err != nil || len(items) != 1 || items[0].Name != "Laptop" {
		t.Fatalf("unexpected list result %+v (%v)", items, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateAndDeleteMissingItem(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET name = ?, quantity = ?, price = ? WHERE id = ?`)).
		WithArgs("Desk", 1, 10.0, int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items WHERE id = ?`)).
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var nf domain.ErrNotFound
	if err := store.UpdateItem(context.Background(), 77, "Desk", 1, 10); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := store.DeleteItem(context.Background(), 77); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummarizeWindowArguments(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0) AS total, COUNT(id) AS count FROM transactions WHERE kind = ? AND occurred_at >= ? AND occurred_at < ?`)).
		WithArgs("sale", "2026-10-15T00:00:00.000000000Z", "2026-10-16T00:00:00.000000000Z").
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(0.0, 0))

	sum, err := store.Summarize(context.Background(), domain.KindSale, domain.PeriodToday)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Total != 0 || sum.Count != 0 || sum.Kind != domain.KindSale || sum.Period != domain.PeriodToday {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryFailuresBecomeStorageErrors(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	mock.ExpectQuery(`SELECT id, username, password, role FROM accounts`).WillReturnError(errors.New("connection dropped"))
	mock.ExpectQuery(`SELECT id, name, quantity, price FROM items`).WillReturnError(errors.New("connection dropped"))

	var se *domain.StorageError
	if _, _, err := store.Authenticate(context.Background(), "admin", "pw"); !errors.As(err, &se) {
		t.Fatalf("expected StorageError from authenticate, got %v", err)
	}
	if _, err := store.ListItems(context.Background(), ""); !errors.As(err, &se) || se.Op != "list items" {
		t.Fatalf("expected StorageError from list, got %v", err)
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"Lap":    "%lap%",
		"100%":   `%100\%%`,
		"a_b":    `%a\_b%`,
		`back\s`: `%back\\s%`,
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Fatalf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordPurchaseRejectsStockAboveLimit(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectForSale)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity"}).AddRow("Laptop", 10))
	mock.ExpectRollback()

	_, err := store.RecordPurchase(context.Background(), 1, domain.MaxQuantity-9, 1)
	var ve domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "quantity" {
		t.Fatalf("expected quantity ValidationError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("stock must not be adjusted: %v", err)
	}
}

func TestSQLiteNameFilterFoldsInGo(t *testing.T) {
	store, mock := newMockStore(t, SQLite)

	mock.ExpectQuery(`^SELECT id, name, quantity, price FROM items ORDER BY id DESC$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "price"}).
			AddRow(int64(3), "École Notebook", 4, 35.0).
			AddRow(int64(2), "Eraser", 9, 5.0).
			AddRow(int64(1), "CAFÉ Beans", 2, 250.0))
	items, err := store.ListItems(context.Background(), "é")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "École Notebook" || items[1].Name != "CAFÉ Beans" {
		t.Fatalf("unexpected filter result %+v", items)
	}

	mock.ExpectQuery(`^SELECT id, item_id, item_name, quantity, amount, kind, occurred_at FROM transactions WHERE kind = \? ORDER BY occurred_at DESC, id DESC$`).
		WithArgs("sale").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "item_name", "quantity", "amount", "kind", "occurred_at"}).
			AddRow(int64(2), int64(2), "Eraser", 1, 5.0, "sale", "2026-10-15T09:00:00.000000000Z").
			AddRow(int64(1), int64(3), "École Notebook", 1, 35.0, "sale", "2026-10-15T08:00:00.000000000Z"))
	txs, err := store.ListTransactions(context.Background(), domain.TransactionFilter{Kind: domain.KindSale, ItemName: "ÉCOLE"})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ItemName != "École Notebook" {
		t.Fatalf("unexpected transaction filter result %+v", txs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
