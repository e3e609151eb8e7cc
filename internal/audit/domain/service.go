package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/receiptorhq/receiptor/pkg/db/pagination"
)

type ListEventsRequest struct {
	pagination.Pagination
	Kind      string
	ReceiptID string
	StartAt   *time.Time
	EndAt     *time.Time
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []Event `json:"events"`
}

// Service is the audit log. Append is fire-and-forget: a failed write is
// logged and swallowed so audit never aborts the user-facing operation.
type Service interface {
	Append(ctx context.Context, kind EventKind, receiptID *snowflake.ID, metadata map[string]any)
	List(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidReceiptID = errors.New("invalid_receipt_id")
)
