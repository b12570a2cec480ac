package models

import (
	"errors"
)

// ErrImmutableRecord is returned by gorm hooks on append-only tables.
var ErrImmutableRecord = errors.New("record is immutable")

// All lists every persisted model, in dependency order, for migrations.
func All() []interface{} {
	return []interface{}{
		&Invoice{},
		&PayinReport{},
		&Ledger{},
		&PaymentApplication{},
		&CreditNote{},
		&InvoiceEvent{},
		&StatementImport{},
		&BankTransaction{},
		&Promotion{},
		&AuditLog{},
	}
}
