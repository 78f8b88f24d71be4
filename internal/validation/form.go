// Package validation parses raw form input from the presentation layer into
// typed values. Everything it rejects is a domain.ValidationError, so bad input
// never reaches the store.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"smartstock/pkg/domain"
)

// currencySymbols are stripped from prices so values copied from a formatted
// listing parse back.
var currencySymbols = []string{"₱", "$"}

// ItemForm is a validated create/update item submission.
type ItemForm struct {
	Name     string
	Quantity int
	Price    float64
}

// TransactionForm is a validated sale or purchase submission.
type TransactionForm struct {
	Quantity int
	Unit     float64
}

func invalid(field, reason string) error {
	return domain.ValidationError{Field: field, Reason: reason}
}

// ParseItemForm validates the name, quantity and price fields of the item form.
func ParseItemForm(name, quantity, price string) (ItemForm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ItemForm{}, invalid("name", "cannot be empty")
	}
	q, err := ParseQuantity(quantity)
	if err != nil {
		return ItemForm{}, err
	}
	p, err := ParsePrice(price)
	if err != nil {
		return ItemForm{}, err
	}
	return ItemForm{Name: name, Quantity: q, Price: p}, nil
}

// ParseTransactionForm validates a sale or purchase. Both quantity and unit
// amount must be strictly positive.
func ParseTransactionForm(quantity, unit string) (TransactionForm, error) {
	q, err := ParseQuantity(quantity)
	if err != nil {
		return TransactionForm{}, err
	}
	u, err := ParsePrice(unit)
	if err != nil {
		return TransactionForm{}, err
	}
	if err := domain.ValidateTransactionInput(q, u); err != nil {
		return TransactionForm{}, err
	}
	return TransactionForm{Quantity: q, Unit: u}, nil
}

// ParseQuantity accepts an unsigned whole number.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid("quantity", "cannot be empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, invalid("quantity", "must be a whole number")
		}
	}
	q, err := strconv.Atoi(s)
	if err != nil || q > domain.MaxQuantity {
		return 0, invalid("quantity", fmt.Sprintf("cannot exceed %d", domain.MaxQuantity))
	}
	return q, nil
}

var maxPrice = decimal.NewFromFloat(domain.MaxPrice)

// ParsePrice accepts a non-negative decimal up to domain.MaxPrice, ignoring currency symbols and
// thousands separators.
func ParsePrice(s string) (float64, error) {
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, invalid("price", "cannot be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalid("price", "must be numeric")
	}
	if d.IsNegative() {
		return 0, invalid("price", "cannot be negative")
	}
	if d.GreaterThan(maxPrice) {
		return 0, invalid("price", fmt.Sprintf("cannot exceed %.0f", domain.MaxPrice))
	}
	return d.InexactFloat64(), nil
}

// ParseID accepts a positive item or transaction id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "must be a positive whole number")
	}
	return id, nil
}
