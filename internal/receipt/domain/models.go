package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/receiptorhq/receiptor/internal/category"
	"gorm.io/datatypes"
)

// Status is a receipt's processing state. Transitions only move forward
// (pending -> processing -> completed|failed); only Reclassify re-enters
// processing from a terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var knownStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// KnownStatus reports whether s is a recognized processing state.
func KnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// CanTransition reports whether a user-driven update may move a receipt
// between statuses. processing and completed are written exclusively by
// the pipeline (completed additionally implies extracted data exists),
// terminal states never turn into each other, and nothing moves backwards.
// That leaves a same-status no-op and abandoning an unfinished receipt as
// failed.
func CanTransition(from, to Status) bool {
	if !KnownStatus(from) || !KnownStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusFailed {
		return from == StatusPending || from == StatusProcessing
	}
	return false
}

// Receipt is one uploaded document and everything the pipeline derived
// from it. Extracted holds the adapter output as JSON; VendorName is
// denormalized from it so list search can hit an indexed column.
type Receipt struct {
	ID              snowflake.ID       `gorm:"primaryKey" json:"id"`
	Filename        string             `gorm:"not null" json:"filename"`
	FileRef         string             `gorm:"not null" json:"-"`
	FileSize        int64              `gorm:"not null" json:"file_size"`
	MimeType        string             `gorm:"not null" json:"mime_type"`
	UploadedAt      time.Time          `gorm:"not null;index" json:"upload_timestamp"`
	Status          Status             `gorm:"not null;index" json:"processing_status"`
	VendorName      *string            `gorm:"index" json:"-"`
	Extracted       datatypes.JSON     `json:"extracted_data,omitempty"`
	Category        *category.Category `gorm:"index" json:"category,omitempty"`
	ConfidenceScore *float64           `json:"confidence_score,omitempty"`
	ManualReview    bool               `gorm:"not null" json:"manual_review_needed"`
	Tags            datatypes.JSON     `json:"tags,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `gorm:"not null" json:"-"`
	UpdatedAt       time.Time          `gorm:"not null" json:"-"`
}

func (Receipt) TableName() string {
	return "receipts"
}
