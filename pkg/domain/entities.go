// Package domain defines the persistent entities, value types, error kinds,
// and storage contract used by smartstock.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EntityType identifies the type of record referenced by errors and audit lines.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityAccount identifies a login account.
	EntityAccount EntityType = "account"
	// EntityItem identifies an inventory item.
	EntityItem EntityType = "item"
	// EntityTransaction identifies a sale or purchase record.
	EntityTransaction EntityType = "transaction"
)

// Role is the access level attached to an Account.
type Role string

// Known roles.
const (
	// RoleAdmin may read and mutate inventory.
	RoleAdmin Role = "admin"
	// RoleStaff may only read inventory and reports.
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Account is a login identity. Password holds a bcrypt hash for accounts
// provisioned by this tool; legacy rows may still carry plaintext.
type Account struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
	Role     Role   `db:"role" json:"role"`
}

// Item is a stock-keeping record.
type Item struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Quantity int     `db:"quantity" json:"quantity"`
	Price    float64 `db:"price" json:"price"`
}

// Validate checks the mutable fields of an item. The identifier is not inspected.
func (i Item) Validate() error {
	return ValidateItemFields(i.Name, i.Quantity, i.Price)
}

// Upper bounds on stored values. MaxQuantity fits the narrowest quantity
// column of any backend; MaxPrice keeps every line amount and total finite.
const (
	MaxQuantity = math.MaxInt32
	MaxPrice    = 1e12
)

// ValidateItemFields applies the item field rules: non-empty name,
// quantity and price non-negative and within bounds.
func ValidateItemFields(name string, quantity int, price float64) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if quantity < 0 {
		return ValidationError{Field: "quantity", Reason: "cannot be negative"}
	}
	if quantity > MaxQuantity {
		return ValidationError{Field: "quantity", Reason: fmt.Sprintf("cannot exceed %d", MaxQuantity)}
	}
	if math.IsNaN(price) || price < 0 {
		return ValidationError{Field: "price", Reason: "cannot be negative"}
	}
	if price > MaxPrice {
		return ValidationError{Field: "price", Reason: fmt.Sprintf("cannot exceed %.0f", MaxPrice)}
	}
	return nil
}

// CheckRestock reports whether adding quantity units to an item holding
// current units stays within MaxQuantity.
func CheckRestock(current, quantity int) error {
	if quantity > MaxQuantity-current {
		return ValidationError{Field: "quantity", Reason: fmt.Sprintf("stock of %d plus %d would exceed %d", current, quantity, MaxQuantity)}
	}
	return nil
}

// TransactionKind distinguishes sales from purchases.
type TransactionKind string

const (
	// KindSale decrements stock.
	KindSale TransactionKind = "sale"
	// KindPurchase increments stock.
	KindPurchase TransactionKind = "purchase"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// Transaction is an immutable log entry produced by a sale or purchase.
// Amount is the total (quantity times unit amount). ItemName is the item's
// name when the entry was recorded; ItemID may dangle after the item is deleted.
type Transaction struct {
	ID         int64           `json:"id"`
	ItemID     int64           `json:"item_id"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	Amount     float64         `json:"amount"`
	Kind       TransactionKind `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// UnitAmount returns the per-unit amount implied by the recorded total.
func (t Transaction) UnitAmount() float64 {
	if t.Quantity == 0 {
		return 0
	}
	return DivideAmount(t.Amount, t.Quantity)
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Kind     TransactionKind
	ItemName string
}

// Period selects the time window for summaries.
type Period string

const (
	// PeriodToday covers the current local calendar day.
	PeriodToday Period = "today"
	// PeriodAllTime covers every recorded transaction.
	PeriodAllTime Period = "all-time"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodToday || p == PeriodAllTime
}

// Bounds returns the half-open [start, end) window for the period relative to
// now, evaluated in now's location. All-time reports ok=false.
func (p Period) Bounds(now time.Time) (start, end time.Time, ok bool) {
	if p != PeriodToday {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1), true
}

// Summary aggregates transactions of one kind over one period. Total is
// always a number; it is zero when nothing matched.
type Summary struct {
	Kind   TransactionKind `json:"kind"`
	Period Period          `json:"period"`
	Total  float64         `json:"total"`
	Count  int             `json:"count"`
}

// DefaultLowStockThreshold is the quantity at or below which an item counts as low stock.
const DefaultLowStockThreshold = 5

// LowStock returns the items whose quantity is at or below threshold, preserving order.
func LowStock(items []Item, threshold int) []Item {
	out := make([]Item, 0)
	for _, it := range items {
		if it.Quantity <= threshold {
			out = append(out, it)
		}
	}
	return out
}
