package domain

import "context"

// Store is the data-access contract shared by every backend. Implementations
// own their underlying handle exclusively and are not role-aware; callers
// apply authorization before invoking mutations.
type Store interface {
	// Authenticate returns the role of the account matching username and
	// password. ok is false when nothing matches, whatever the reason.
	Authenticate(ctx context.Context, username, password string) (role Role, ok bool, err error)

	GetItem(ctx context.Context, id int64) (Item, error)
	// ListItems returns items whose name contains filter case-insensitively,
	// newest first. An empty filter returns every item.
	ListItems(ctx context.Context, filter string) ([]Item, error)
	CreateItem(ctx context.Context, name string, quantity int, price float64) (int64, error)
	UpdateItem(ctx context.Context, id int64, name string, quantity int, price float64) error
	DeleteItem(ctx context.Context, id int64) error

	// RecordSale decrements stock and appends a sale transaction atomically.
	RecordSale(ctx context.Context, itemID int64, quantity int, unitPrice float64) (int64, error)
	// RecordPurchase increments stock and appends a purchase transaction atomically.
	RecordPurchase(ctx context.Context, itemID int64, quantity int, unitCost float64) (int64, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	Summarize(ctx context.Context, kind TransactionKind, period Period) (Summary, error)

	// Seed provisions accounts and items on first run. Tables that already
	// hold rows are left alone.
	Seed(ctx context.Context, data SeedData) error
	Close() error
}

// PasswordHasher hashes credentials for storage and verifies login attempts.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}
