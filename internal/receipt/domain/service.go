package domain

import (
	"context"
	"errors"
)

// MaxFileSize is the upload size ceiling.
const MaxFileSize = 10 << 20

type ProcessRequest struct {
	Filename string
	MimeType string
	Data     []byte
}

type ListRequest struct {
	Category string
	Status   string
	Search   string
	Limit    int
	Offset   int
}

type ListResponse struct {
	Receipts []Receipt `json:"receipts"`
	Total    int64     `json:"total"`
}

// UpdateRequest is a partial edit. Nil fields are left untouched; a status
// change must move forward or the whole update is rejected.
type UpdateRequest struct {
	ID       string
	Category *string
	Status   *string
	Tags     []string
	Notes    *string
}

type Service interface {
	// Process runs the full pipeline for one uploaded document: validate,
	// persist pending, extract, classify, persist the outcome. An
	// extraction failure is reported through the returned receipt's
	// status, not as an error.
	Process(ctx context.Context, req ProcessRequest) (Receipt, error)

	// Reclassify re-runs extraction and classification against an
	// existing receipt, serialized with any in-flight work on the same id.
	Reclassify(ctx context.Context, id string) (Receipt, error)

	GetByID(ctx context.Context, id string) (Receipt, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (Receipt, error)

	// Delete is idempotent: removing an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound         = errors.New("receipt_not_found")
	ErrInvalidID        = errors.New("invalid_receipt_id")
	ErrInvalidMimeType  = errors.New("invalid_mime_type")
	ErrFileTooLarge     = errors.New("file_too_large")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrStatusRegression = errors.New("status_regression")
)
