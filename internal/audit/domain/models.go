package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventKind names the pipeline actions captured in the audit trail.
type EventKind string

const (
	KindReceiptUploaded   EventKind = "receipt.uploaded"
	KindExtractionFailed  EventKind = "extraction.failed"
	KindReceiptClassified EventKind = "receipt.classified"
	KindReceiptUpdated    EventKind = "receipt.updated"
	KindReceiptDeleted    EventKind = "receipt.deleted"
	KindRuleCreated       EventKind = "rule.created"
	KindRuleUpdated       EventKind = "rule.updated"
	KindRuleDeleted       EventKind = "rule.deleted"
)

// Event is one append-only audit record. It captures a snapshot; it never
// references mutable state.
type Event struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	ReceiptID *snowflake.ID     `gorm:"index" json:"receipt_id,omitempty"`
	Kind      EventKind         `gorm:"not null;index" json:"kind"`
	Actor     string            `gorm:"not null" json:"actor"`
	Metadata  datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string {
	return "audit_events"
}
