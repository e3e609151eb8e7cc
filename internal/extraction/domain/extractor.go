package domain

import (
	"context"
	"errors"
	"time"
)

// LineItem is a single purchased item read off a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ExtractedData holds the structured fields pulled from a receipt document.
// Every field is optional: extraction may fail per field, not atomically.
type ExtractedData struct {
	VendorName    *string    `json:"vendor_name,omitempty"`
	TotalAmount   *float64   `json:"total_amount,omitempty"`
	TaxAmount     *float64   `json:"tax_amount,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Description   *string    `json:"description,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	ReceiptNumber *string    `json:"receipt_number,omitempty"`
}

// Result is a successful extraction: the field set plus the adapter's
// confidence in it.
type Result struct {
	Data       ExtractedData
	Confidence float64
}

// Extractor converts raw document bytes into structured receipt fields.
// Implementations may be long-running; they must honor ctx cancellation
// and must not touch the receipt store.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (Result, error)
}

var ErrUnavailable = errors.New("extractor_unavailable")
