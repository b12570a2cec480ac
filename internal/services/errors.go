package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service errors so transports can map them once.
type ErrorKind int

const (
	// KindValidation is a malformed request (400).
	KindValidation ErrorKind = iota + 1
	// KindNotFound is a missing entity (404).
	KindNotFound
	// KindConflict is a business-rule rejection. Expected, recoverable and
	// never logged as a failure (409).
	KindConflict
	// KindInvariant means stored state broke a money invariant. The
	// transaction is aborted and the error is reported (500).
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the single structured error returned by the engine. Code is the
// stable machine identifier; Message is optional detail for humans.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is matches on Code so that sentinels compare equal to their detailed copies.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying extra detail.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// Retryable reports whether repeating the call may succeed.
func (e *Error) Retryable() bool {
	return e.Code == ErrConcurrentModification.Code
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// AsError extracts the structured error, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// invariantf builds an invariant violation. These abort the transaction.
func invariantf(format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Code: "INVARIANT_VIOLATION", Message: fmt.Sprintf(format, args...)}
}

// Service errors
var (
	ErrInvoiceNotFound     = newError(KindNotFound, "INVOICE_NOT_FOUND", "invoice not found")
	ErrLedgerNotFound      = newError(KindNotFound, "LEDGER_NOT_FOUND", "payment pool entry not found")
	ErrTransactionNotFound = newError(KindNotFound, "TRANSACTION_NOT_FOUND", "bank transaction not found")
	ErrPayinNotFound       = newError(KindNotFound, "PAYIN_NOT_FOUND", "pay-in report not found")
	ErrImportNotFound      = newError(KindNotFound, "IMPORT_NOT_FOUND", "statement import not found")

	ErrInvalidAmount  = newError(KindValidation, "INVALID_AMOUNT", "amount must be positive with at most two decimals")
	ErrReasonRequired = newError(KindValidation, "REASON_REQUIRED", "a reason is required")
	ErrInvalidInput   = newError(KindValidation, "INVALID_INPUT", "")

	ErrAmountExceedsLedgerRemaining = newError(KindConflict, "AMOUNT_EXCEEDS_LEDGER_REMAINING", "amount exceeds the payment pool entry's remaining balance")
	ErrAmountExceedsOutstanding     = newError(KindConflict, "AMOUNT_EXCEEDS_OUTSTANDING", "amount exceeds the invoice's outstanding balance")
	ErrCreditExceedsOutstanding     = newError(KindConflict, "CREDIT_EXCEEDS_OUTSTANDING", "credit exceeds the invoice's outstanding balance")
	ErrInvoiceFullyCredited         = newError(KindConflict, "INVOICE_FULLY_CREDITED", "invoice has nothing left to credit")
	ErrInsufficientOutstanding      = newError(KindConflict, "INSUFFICIENT_OUTSTANDING", "decrement exceeds the invoice's outstanding balance")
	ErrAlreadyMatched               = newError(KindConflict, "ALREADY_MATCHED", "bank transaction is already matched to another pay-in")
	ErrPayinAlreadyLinked           = newError(KindConflict, "PAYIN_ALREADY_LINKED", "pay-in is already linked to another bank transaction")
	ErrDuplicateImport              = newError(KindConflict, "DUPLICATE_IMPORT", "this statement file was already imported")
	ErrImportAlreadyConfirmed       = newError(KindConflict, "IMPORT_ALREADY_CONFIRMED", "statement import was already confirmed")
	ErrInvalidImportState           = newError(KindConflict, "INVALID_IMPORT_STATE", "statement import can no longer change")
	ErrPayinNotAcceptable           = newError(KindConflict, "PAYIN_NOT_ACCEPTABLE", "pay-in report cannot be accepted in its current state")
	ErrConcurrentModification       = newError(KindConflict, "CONCURRENT_MODIFICATION", "record changed concurrently, retry")
)
