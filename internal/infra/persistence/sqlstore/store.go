// Package sqlstore implements domain.Store over database/sql. The SQLite and
// Postgres packages open their drivers and hand the handle to this store, so
// query text and transaction boundaries live in one place.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"smartstock/internal/auth"
	"smartstock/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Store = (*Store)(nil)

// timeLayout is fixed width so lexical order on occurred_at is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists accounts, items and transactions in three relational tables.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	hasher  domain.PasswordHasher
	now     func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithHasher overrides the password hasher (default bcrypt at default cost).
func WithHasher(h domain.PasswordHasher) Option {
	return func(s *Store) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides the clock used for transaction timestamps and the
// "today" window. The returned time's location defines the local day.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open handle. The store takes ownership: Close closes db.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      sqlx.NewDb(db, dialect.DriverName),
		dialect: dialect,
		hasher:  auth.NewBcrypt(0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.WrapStorage("apply schema", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db.DB }

// Dialect returns the configured SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Authenticate looks the account up by exact username and verifies the
// password. Unknown usernames burn a comparison so both failure paths look alike.
func (s *Store) Authenticate(ctx context.Context, username, password string) (domain.Role, bool, error) {
	var acct domain.Account
	err := s.db.GetContext(ctx, &acct, s.db.Rebind(`SELECT id, username, password, role FROM accounts WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		auth.Burn(password)
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.WrapStorage("authenticate", err)
	}
	if acct.Username != username || !s.hasher.Verify(acct.Password, password) {
		return "", false, nil
	}
	return acct.Role, true, nil
}

// GetItem returns a single item.
func (s *Store) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	var item domain.Item
	err := s.db.GetContext(ctx, &item, s.db.Rebind(`SELECT id, name, quantity, price FROM items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, domain.ErrNotFound{Entity: domain.EntityItem, ID: id}
	}
	if err != nil {
		return domain.Item{}, domain.WrapStorage("get item", err)
	}
	return item, nil
}

// ListItems returns items newest first, optionally filtered by a
// case-insensitive name substring. Case folding is Unicode-aware on every
// dialect.
func (s *Store) ListItems(ctx context.Context, filter string) ([]domain.Item, error) {
	query := `SELECT id, name, quantity, price FROM items`
	var args []any
	if filter != "" && s.dialect.UnicodeLower {
		query += ` WHERE LOWER(name) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter))
	}
	query += ` ORDER BY id DESC`
	items := make([]domain.Item, 0)
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, domain.WrapStorage("list items", err)
	}
	if filter != "" && !s.dialect.UnicodeLower {
		items = matchingNames(items, filter, func(it domain.Item) string { return it.Name })
	}
	return items, nil
}

// CreateItem inserts a validated item and returns its new identifier.
func (s *Store) CreateItem(ctx context.Context, name string, quantity int, price float64) (int64, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateItemFields(name, quantity, price); err != nil {
		return 0, err
	}
	var id int64
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO items (name, quantity, price) VALUES (?, ?, ?) RETURNING id`), name, quantity, price)
	if err := row.Scan(&id); err != nil {
		return 0, domain.WrapStorage("insert item", err)
	}
	return id, nil
}

// UpdateItem overwrites name, quantity and price of an existing item.
func (s *Store) UpdateItem(ctx context.Context, id int64, name string, quantity int, price float64) error {
	name = strings.TrimSpace(name)
	if err := domain.ValidateItemFields(name, quantity, price); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE items SET name = ?, quantity = ?, price = ? WHERE id = ?`), name, quantity, price, id)
	if err != nil {
		return domain.WrapStorage("update item", err)
	}
	return expectOneRow(res, "update item", id)
}

// DeleteItem removes an item. Transactions that reference it are kept.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return domain.WrapStorage("delete item", err)
	}
	return expectOneRow(res, "delete item", id)
}

// RecordSale decrements stock and appends a sale in one database transaction.
func (s *Store) RecordSale(ctx context.Context, itemID int64, quantity int, unitPrice float64) (int64, error) {
	return s.recordMovement(ctx, domain.KindSale, itemID, quantity, unitPrice)
}

// RecordPurchase increments stock and appends a purchase in one database transaction.
func (s *Store) RecordPurchase(ctx context.Context, itemID int64, quantity int, unitCost float64) (int64, error) {
	return s.recordMovement(ctx, domain.KindPurchase, itemID, quantity, unitCost)
}

func (s *Store) recordMovement(ctx context.Context, kind domain.TransactionKind, itemID int64, quantity int, unit float64) (int64, error) {
	if err := domain.ValidateTransactionInput(quantity, unit); err != nil {
		return 0, err
	}
	op := "record " + string(kind)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, domain.WrapStorage(op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		Name     string `db:"name"`
		Quantity int    `db:"quantity"`
	}
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT name, quantity FROM items WHERE id = ?`+s.dialect.LockSuffix), itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound{Entity: domain.EntityItem, ID: itemID}
	}
	if err != nil {
		return 0, domain.WrapStorage(op, err)
	}

	delta := quantity
	switch kind {
	case domain.KindSale:
		if quantity > current.Quantity {
			return 0, domain.InsufficientStockError{ItemID: itemID, Requested: quantity, Available: current.Quantity}
		}
		delta = -quantity
	case domain.KindPurchase:
		if err := domain.CheckRestock(current.Quantity, quantity); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE items SET quantity = quantity + ? WHERE id = ?`), delta, itemID); err != nil {
		return 0, domain.WrapStorage(op, fmt.Errorf("adjust stock: %w", err))
	}

	var txID int64
	amount := domain.LineAmount(quantity, unit)
	occurredAt := s.now().UTC().Format(timeLayout)
	row := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO transactions (item_id, item_name, quantity, amount, kind, occurred_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		itemID, current.Name, quantity, amount, string(kind), occurredAt)
	if err := row.Scan(&txID); err != nil {
		return 0, domain.WrapStorage(op, fmt.Errorf("append transaction: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.WrapStorage(op, fmt.Errorf("commit: %w", err))
	}
	committed = true
	return txID, nil
}

type transactionRow struct {
	ID         int64   `db:"id"`
	ItemID     int64   `db:"item_id"`
	ItemName   string  `db:"item_name"`
	Quantity   int     `db:"quantity"`
	Amount     float64 `db:"amount"`
	Kind       string  `db:"kind"`
	OccurredAt string  `db:"occurred_at"`
}

func (r transactionRow) toDomain(loc *time.Location) (domain.Transaction, error) {
	at, err := time.ParseInLocation(timeLayout, r.OccurredAt, time.UTC)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse occurred_at %q: %w", r.OccurredAt, err)
	}
	return domain.Transaction{
		ID:         r.ID,
		ItemID:     r.ItemID,
		ItemName:   r.ItemName,
		Quantity:   r.Quantity,
		Amount:     r.Amount,
		Kind:       domain.TransactionKind(r.Kind),
		OccurredAt: at.In(loc),
	}, nil
}

// ListTransactions returns transactions newest first.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := `SELECT id, item_id, item_name, quantity, amount, kind, occurred_at FROM transactions`
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		if !filter.Kind.Valid() {
			return nil, domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", filter.Kind)}
		}
		where = append(where, `kind = ?`)
		args = append(args, string(filter.Kind))
	}
	if filter.ItemName != "" && s.dialect.UnicodeLower {
		where = append(where, `LOWER(item_name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.ItemName))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, domain.WrapStorage("list transactions", err)
	}
	if filter.ItemName != "" && !s.dialect.UnicodeLower {
		rows = matchingNames(rows, filter.ItemName, func(r transactionRow) string { return r.ItemName })
	}
	loc := s.now().Location()
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := r.toDomain(loc)
		if err != nil {
			return nil, domain.WrapStorage("list transactions", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Summarize sums and counts transactions of kind within period.
func (s *Store) Summarize(ctx context.Context, kind domain.TransactionKind, period domain.Period) (domain.Summary, error) {
	if !kind.Valid() {
		return domain.Summary{}, domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	if !period.Valid() {
		return domain.Summary{}, domain.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", period)}
	}
	query := `SELECT COALESCE(SUM(amount), 0) AS total, COUNT(id) AS count FROM transactions WHERE kind = ?`
	args := []any{string(kind)}
	if start, end, ok := period.Bounds(s.now()); ok {
		query += ` AND occurred_at >= ? AND occurred_at < ?`
		args = append(args, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	}
	var agg struct {
		Total float64 `db:"total"`
		Count int     `db:"count"`
	}
	if err := s.db.GetContext(ctx, &agg, s.db.Rebind(query), args...); err != nil {
		return domain.Summary{}, domain.WrapStorage("summarize", err)
	}
	return domain.Summary{Kind: kind, Period: period, Total: domain.RoundCents(agg.Total), Count: agg.Count}, nil
}

// Seed provisions first-run data inside one transaction. Accounts are only
// inserted into an empty accounts table, items (and the seed transactions
// that reference them) only into an empty items table.
func (s *Store) Seed(ctx context.Context, data domain.SeedData) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapStorage("seed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var accounts int
	if err := tx.GetContext(ctx, &accounts, `SELECT COUNT(*) FROM accounts`); err != nil {
		return domain.WrapStorage("seed", err)
	}
	if accounts == 0 {
		for _, a := range data.Accounts {
			if !a.Role.Valid() {
				return domain.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", a.Role)}
			}
			hash, err := s.hasher.Hash(a.Password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", a.Username, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO accounts (username, password, role) VALUES (?, ?, ?)`), a.Username, hash, string(a.Role)); err != nil {
				return domain.WrapStorage("seed accounts", err)
			}
		}
	}

	var items int
	if err := tx.GetContext(ctx, &items, `SELECT COUNT(*) FROM items`); err != nil {
		return domain.WrapStorage("seed", err)
	}
	if items == 0 {
		ids := make([]int64, len(data.Items))
		for i, it := range data.Items {
			if err := it.Validate(); err != nil {
				return err
			}
			if err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO items (name, quantity, price) VALUES (?, ?, ?) RETURNING id`), it.Name, it.Quantity, it.Price).Scan(&ids[i]); err != nil {
				return domain.WrapStorage("seed items", err)
			}
		}
		now := s.now()
		for _, st := range data.Transactions {
			if st.ItemIndex < 0 || st.ItemIndex >= len(ids) {
				return domain.ValidationError{Field: "item index", Reason: fmt.Sprintf("%d out of range", st.ItemIndex)}
			}
			name := data.Items[st.ItemIndex].Name
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO transactions (item_id, item_name, quantity, amount, kind, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`),
				ids[st.ItemIndex], name, st.Quantity, st.Amount, string(st.Kind), st.OccurredAt(now).UTC().Format(timeLayout)); err != nil {
				return domain.WrapStorage("seed transactions", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapStorage("seed", err)
	}
	committed = true
	return nil
}

func expectOneRow(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapStorage(op, err)
	}
	if n == 0 {
		return domain.ErrNotFound{Entity: domain.EntityItem, ID: id}
	}
	return nil
}

// matchingNames keeps the rows whose name contains term, ignoring case.
func matchingNames[T any](rows []T, term string, name func(T) string) []T {
	needle := strings.ToLower(term)
	out := rows[:0]
	for _, r := range rows {
		if strings.Contains(strings.ToLower(name(r)), needle) {
			out = append(out, r)
		}
	}
	return out
}

// likePattern lower-cases term and escapes LIKE wildcards so the filter is a
// literal substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
