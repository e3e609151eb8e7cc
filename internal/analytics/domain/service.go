package domain

import (
	"context"

	"github.com/receiptorhq/receiptor/internal/category"
)

type CategoryStat struct {
	Category    category.Category `json:"category"`
	TotalAmount float64           `json:"total_amount"`
	Count       int64             `json:"count"`
}

type MonthlyStat struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	TotalAmount float64 `json:"total_amount"`
	Count       int64   `json:"count"`
}

// Summary is the spending rollup over the whole receipt store.
// TotalReceipts counts every receipt regardless of status; the breakdown
// covers only completed, categorized receipts, with the uncategorized
// remainder surfaced through PendingReview.
type Summary struct {
	TotalReceipts     int64          `json:"total_receipts"`
	TotalAmount       float64        `json:"total_amount"`
	PendingReview     int64          `json:"pending_review"`
	CategoryBreakdown []CategoryStat `json:"category_breakdown"`
	MonthlyTrends     []MonthlyStat  `json:"monthly_trends"`
}

// Service recomputes the summary on demand. There is no incremental state
// or cache, so the result always reflects the store at call time.
type Service interface {
	Summarize(ctx context.Context) (Summary, error)
}
