// Package memory provides an in-memory implementation of the inventory store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"smartstock/internal/auth"
	"smartstock/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain store interface.
var _ domain.Store = (*Store)(nil)

type memoryState struct {
	accounts     map[string]domain.Account
	items        map[int64]domain.Item
	transactions []domain.Transaction
	nextAccount  int64
	nextItem     int64
	nextTx       int64
}

func newMemoryState() memoryState {
	return memoryState{
		accounts:    map[string]domain.Account{},
		items:       map[int64]domain.Item{},
		nextAccount: 1,
		nextItem:    1,
		nextTx:      1,
	}
}

func (s memoryState) clone() memoryState {
	out := s
	out.accounts = make(map[string]domain.Account, len(s.accounts))
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	out.items = make(map[int64]domain.Item, len(s.items))
	for k, v := range s.items {
		out.items[k] = v
	}
	out.transactions = append([]domain.Transaction(nil), s.transactions...)
	return out
}

// Store keeps all state in process memory. Mutations run against a clone of
// the state which replaces the live state only when the mutation succeeds.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	hasher domain.PasswordHasher
	now    func() time.Time
	closed bool
}

// Option customises a Store.
type Option func(*Store)

// WithHasher overrides the password hasher.
func WithHasher(h domain.PasswordHasher) Option {
	return func(s *Store) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides the clock used for timestamps and the "today" window.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{state: newMemoryState(), hasher: auth.NewBcrypt(0), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errClosed mirrors the driver error returned after a SQL handle is closed.
var errClosed = fmt.Errorf("store is closed")

func (s *Store) read(op string, fn func(*memoryState) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.WrapStorage(op, errClosed)
	}
	return fn(&s.state)
}

// mutate applies fn to a copy of the state and publishes it on success.
func (s *Store) mutate(op string, fn func(*memoryState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.WrapStorage(op, errClosed)
	}
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Authenticate implements domain.Store.
func (s *Store) Authenticate(_ context.Context, username, password string) (domain.Role, bool, error) {
	var acct domain.Account
	var found bool
	err := s.read("authenticate", func(st *memoryState) error {
		acct, found = st.accounts[username]
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !found {
		auth.Burn(password)
		return "", false, nil
	}
	if !s.hasher.Verify(acct.Password, password) {
		return "", false, nil
	}
	return acct.Role, true, nil
}

// GetItem implements domain.Store.
func (s *Store) GetItem(_ context.Context, id int64) (domain.Item, error) {
	var item domain.Item
	err := s.read("get item", func(st *memoryState) error {
		it, ok := st.items[id]
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityItem, ID: id}
		}
		item = it
		return nil
	})
	return item, err
}

// ListItems implements domain.Store.
func (s *Store) ListItems(_ context.Context, filter string) ([]domain.Item, error) {
	needle := strings.ToLower(filter)
	out := make([]domain.Item, 0)
	err := s.read("list items", func(st *memoryState) error {
		for _, it := range st.items {
			if needle == "" || strings.Contains(strings.ToLower(it.Name), needle) {
				out = append(out, it)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// CreateItem implements domain.Store.
func (s *Store) CreateItem(_ context.Context, name string, quantity int, price float64) (int64, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateItemFields(name, quantity, price); err != nil {
		return 0, err
	}
	var id int64
	err := s.mutate("insert item", func(st *memoryState) error {
		id = st.nextItem
		st.nextItem++
		st.items[id] = domain.Item{ID: id, Name: name, Quantity: quantity, Price: price}
		return nil
	})
	return id, err
}

// UpdateItem implements domain.Store.
func (s *Store) UpdateItem(_ context.Context, id int64, name string, quantity int, price float64) error {
	name = strings.TrimSpace(name)
	if err := domain.ValidateItemFields(name, quantity, price); err != nil {
		return err
	}
	return s.mutate("update item", func(st *memoryState) error {
		if _, ok := st.items[id]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityItem, ID: id}
		}
		st.items[id] = domain.Item{ID: id, Name: name, Quantity: quantity, Price: price}
		return nil
	})
}

// DeleteItem implements domain.Store.
func (s *Store) DeleteItem(_ context.Context, id int64) error {
	return s.mutate("delete item", func(st *memoryState) error {
		if _, ok := st.items[id]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityItem, ID: id}
		}
		delete(st.items, id)
		return nil
	})
}

// RecordSale implements domain.Store.
func (s *Store) RecordSale(_ context.Context, itemID int64, quantity int, unitPrice float64) (int64, error) {
	return s.recordMovement(domain.KindSale, itemID, quantity, unitPrice)
}

// RecordPurchase implements domain.Store.
func (s *Store) RecordPurchase(_ context.Context, itemID int64, quantity int, unitCost float64) (int64, error) {
	return s.recordMovement(domain.KindPurchase, itemID, quantity, unitCost)
}

func (s *Store) recordMovement(kind domain.TransactionKind, itemID int64, quantity int, unit float64) (int64, error) {
	if err := domain.ValidateTransactionInput(quantity, unit); err != nil {
		return 0, err
	}
	var txID int64
	err := s.mutate("record "+string(kind), func(st *memoryState) error {
		item, ok := st.items[itemID]
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityItem, ID: itemID}
		}
		switch kind {
		case domain.KindSale:
			if quantity > item.Quantity {
				return domain.InsufficientStockError{ItemID: itemID, Requested: quantity, Available: item.Quantity}
			}
			item.Quantity -= quantity
		case domain.KindPurchase:
			if err := domain.CheckRestock(item.Quantity, quantity); err != nil {
				return err
			}
			item.Quantity += quantity
		}
		st.items[itemID] = item
		txID = st.nextTx
		st.nextTx++
		st.transactions = append(st.transactions, domain.Transaction{
			ID:         txID,
			ItemID:     itemID,
			ItemName:   item.Name,
			Quantity:   quantity,
			Amount:     domain.LineAmount(quantity, unit),
			Kind:       kind,
			OccurredAt: s.now(),
		})
		return nil
	})
	return txID, err
}

// ListTransactions implements domain.Store.
func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", filter.Kind)}
	}
	needle := strings.ToLower(filter.ItemName)
	out := make([]domain.Transaction, 0)
	err := s.read("list transactions", func(st *memoryState) error {
		for _, t := range st.transactions {
			if filter.Kind != "" && t.Kind != filter.Kind {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(t.ItemName), needle) {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Summarize implements domain.Store.
func (s *Store) Summarize(_ context.Context, kind domain.TransactionKind, period domain.Period) (domain.Summary, error) {
	if !kind.Valid() {
		return domain.Summary{}, domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	if !period.Valid() {
		return domain.Summary{}, domain.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", period)}
	}
	start, end, bounded := period.Bounds(s.now())
	var amounts []float64
	err := s.read("summarize", func(st *memoryState) error {
		for _, t := range st.transactions {
			if t.Kind != kind {
				continue
			}
			if bounded && (t.OccurredAt.Before(start) || !t.OccurredAt.Before(end)) {
				continue
			}
			amounts = append(amounts, t.Amount)
		}
		return nil
	})
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{Kind: kind, Period: period, Total: domain.SumAmounts(amounts...), Count: len(amounts)}, nil
}

// Seed implements domain.Store.
func (s *Store) Seed(_ context.Context, data domain.SeedData) error {
	return s.mutate("seed", func(st *memoryState) error {
		if len(st.accounts) == 0 {
			for _, a := range data.Accounts {
				if !a.Role.Valid() {
					return domain.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", a.Role)}
				}
				hash, err := s.hasher.Hash(a.Password)
				if err != nil {
					return fmt.Errorf("hash password for %s: %w", a.Username, err)
				}
				st.accounts[a.Username] = domain.Account{ID: st.nextAccount, Username: a.Username, Password: hash, Role: a.Role}
				st.nextAccount++
			}
		}
		if len(st.items) > 0 {
			return nil
		}
		ids := make([]int64, len(data.Items))
		for i, it := range data.Items {
			if err := it.Validate(); err != nil {
				return err
			}
			ids[i] = st.nextItem
			st.nextItem++
			st.items[ids[i]] = domain.Item{ID: ids[i], Name: it.Name, Quantity: it.Quantity, Price: it.Price}
		}
		now := s.now()
		for _, t := range data.Transactions {
			if t.ItemIndex < 0 || t.ItemIndex >= len(ids) {
				return domain.ValidationError{Field: "item index", Reason: fmt.Sprintf("%d out of range", t.ItemIndex)}
			}
			st.transactions = append(st.transactions, domain.Transaction{
				ID:         st.nextTx,
				ItemID:     ids[t.ItemIndex],
				ItemName:   data.Items[t.ItemIndex].Name,
				Quantity:   t.Quantity,
				Amount:     t.Amount,
				Kind:       t.Kind,
				OccurredAt: t.OccurredAt(now),
			})
			st.nextTx++
		}
		return nil
	})
}

// Close marks the store closed; later calls fail with a StorageError.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
