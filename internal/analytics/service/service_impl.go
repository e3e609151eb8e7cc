package service

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/receiptorhq/receiptor/internal/analytics/domain"
	extractiondomain "github.com/receiptorhq/receiptor/internal/extraction/domain"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("analytics.service"),
	}
}

type monthKey struct {
	year  int
	month int
}

// Summarize scans the receipt store inside one transaction so the rollup
// is a point-in-time snapshot, never a mix of mid-flight writes.
func (s *Service) Summarize(ctx context.Context) (domain.Summary, error) {
	summary := domain.Summary{
		CategoryBreakdown: []domain.CategoryStat{},
		MonthlyTrends:     []domain.MonthlyStat{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receipts []*receiptdomain.Receipt
		if err := tx.Order("id asc").Find(&receipts).Error; err != nil {
			return err
		}

		byCategory := map[string]*domain.CategoryStat{}
		byMonth := map[monthKey]*domain.MonthlyStat{}

		for _, receipt := range receipts {
			summary.TotalReceipts++

			var extracted extractiondomain.ExtractedData
			if len(receipt.Extracted) > 0 {
				if err := json.Unmarshal(receipt.Extracted, &extracted); err != nil {
					s.log.Warn("skipping undecodable extracted data",
						zap.String("receipt_id", receipt.ID.String()),
						zap.Error(err),
					)
					extracted = extractiondomain.ExtractedData{}
				}
			}

			// A missing amount contributes 0, not an exclusion.
			amount := 0.0
			if extracted.TotalAmount != nil {
				amount = *extracted.TotalAmount
			}

			if receipt.Status == receiptdomain.StatusCompleted {
				if receipt.Category != nil {
					summary.TotalAmount += amount
					stat, ok := byCategory[receipt.Category.String()]
					if !ok {
						stat = &domain.CategoryStat{Category: *receipt.Category}
						byCategory[receipt.Category.String()] = stat
					}
					stat.TotalAmount += amount
					stat.Count++
				} else {
					summary.PendingReview++
				}
			}

			// Trend bucket: extracted receipt date when present, upload
			// timestamp otherwise.
			when := receipt.UploadedAt
			if extracted.Date != nil {
				when = *extracted.Date
			}
			key := monthKey{year: when.Year(), month: int(when.Month())}
			trend, ok := byMonth[key]
			if !ok {
				trend = &domain.MonthlyStat{Year: key.year, Month: key.month}
				byMonth[key] = trend
			}
			trend.TotalAmount += amount
			trend.Count++
		}

		for _, stat := range byCategory {
			summary.CategoryBreakdown = append(summary.CategoryBreakdown, *stat)
		}
		sort.Slice(summary.CategoryBreakdown, func(i, j int) bool {
			return summary.CategoryBreakdown[i].Category < summary.CategoryBreakdown[j].Category
		})

		for _, trend := range byMonth {
			summary.MonthlyTrends = append(summary.MonthlyTrends, *trend)
		}
		sort.Slice(summary.MonthlyTrends, func(i, j int) bool {
			a, b := summary.MonthlyTrends[i], summary.MonthlyTrends[j]
			if a.Year != b.Year {
				return a.Year < b.Year
			}
			return a.Month < b.Month
		})

		return nil
	})
	if err != nil {
		return domain.Summary{}, err
	}

	return summary, nil
}
