// Package mock provides a deterministic stand-in for an OCR/ML extraction
// backend, mirroring the fixture data the product was demoed with.
package mock

import (
	"context"
	"time"

	"github.com/receiptorhq/receiptor/internal/extraction/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}

	vendor := "Starbucks Coffee"
	total := 9.83
	tax := 0.73
	date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	description := "Coffee and pastry purchase"
	payment := "Credit Card"
	number := "1234567890"

	return domain.Result{
		Data: domain.ExtractedData{
			VendorName:  &vendor,
			TotalAmount: &total,
			TaxAmount:   &tax,
			Date:        &date,
			Description: &description,
			LineItems: []domain.LineItem{
				{Description: "Grande Latte", Amount: 5.65},
				{Description: "Blueberry Muffin", Amount: 3.45},
			},
			PaymentMethod: &payment,
			ReceiptNumber: &number,
		},
		Confidence: 0.95,
	}, nil
}
