package domain

// Operation names a façade operation for authorization and audit purposes.
type Operation string

// Operations exposed to the presentation layer.
const (
	OpListItems        Operation = "list_items"
	OpGetItem          Operation = "get_item"
	OpListTransactions Operation = "list_transactions"
	OpSummarize        Operation = "summarize"
	OpLowStock         Operation = "low_stock"
	OpExportReport     Operation = "export_report"
	OpCreateItem       Operation = "create_item"
	OpUpdateItem       Operation = "update_item"
	OpDeleteItem       Operation = "delete_item"
	OpRecordSale       Operation = "record_sale"
	OpRecordPurchase   Operation = "record_purchase"
)

// readOnly lists the operations granted to every role.
var readOnly = map[Operation]struct{}{
	OpListItems:        {},
	OpGetItem:          {},
	OpListTransactions: {},
	OpSummarize:        {},
	OpLowStock:         {},
	OpExportReport:     {},
}

var mutating = map[Operation]struct{}{
	OpCreateItem:     {},
	OpUpdateItem:     {},
	OpDeleteItem:     {},
	OpRecordSale:     {},
	OpRecordPurchase: {},
}

// Can reports whether the role may perform op. Admin may do everything,
// staff only the read operations. Unknown roles and operations are denied.
func (r Role) Can(op Operation) bool {
	_, read := readOnly[op]
	_, write := mutating[op]
	switch r {
	case RoleAdmin:
		return read || write
	case RoleStaff:
		return read
	default:
		return false
	}
}
