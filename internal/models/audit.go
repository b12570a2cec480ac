package models

import (
	"time"
)

// AuditLog records who did what to reconciliation and intake records. Balance
// mutations are audited separately through InvoiceEvent.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"not null;index" json:"actor_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // MATCH, UNMATCH, IMPORT_CONFIRM, IMPORT_DISCARD, ISSUE, SUBMIT, ACCEPT, REJECT
	Entity    string    `gorm:"size:50;not null" json:"entity"` // BankTransaction, StatementImport, Invoice, PayinReport
	EntityID  uint      `gorm:"index" json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action constants
const (
	AuditActionMatch         = "MATCH"
	AuditActionUnmatch       = "UNMATCH"
	AuditActionImportConfirm = "IMPORT_CONFIRM"
	AuditActionImportDiscard = "IMPORT_DISCARD"
	AuditActionIssue         = "ISSUE"
	AuditActionSubmit        = "SUBMIT"
	AuditActionAccept        = "ACCEPT"
	AuditActionReject        = "REJECT"
)
