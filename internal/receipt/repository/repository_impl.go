package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/receiptorhq/receiptor/internal/receipt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, receipt *domain.Receipt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO receipts (id, filename, file_ref, file_size, mime_type, uploaded_at, status,
		                       vendor_name, extracted, category, confidence_score, manual_review,
		                       tags, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID,
		receipt.Filename,
		receipt.FileRef,
		receipt.FileSize,
		receipt.MimeType,
		receipt.UploadedAt,
		receipt.Status,
		receipt.VendorName,
		receipt.Extracted,
		receipt.Category,
		receipt.ConfidenceScore,
		receipt.ManualReview,
		receipt.Tags,
		receipt.Notes,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := db.WithContext(ctx).First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, receipt *domain.Receipt) error {
	return db.WithContext(ctx).Exec(
		`UPDATE receipts
		 SET status = ?, vendor_name = ?, extracted = ?, category = ?, confidence_score = ?,
		     manual_review = ?, tags = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		receipt.Status,
		receipt.VendorName,
		receipt.Extracted,
		receipt.Category,
		receipt.ConfidenceScore,
		receipt.ManualReview,
		receipt.Tags,
		receipt.Notes,
		receipt.UpdatedAt,
		receipt.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM receipts WHERE id = ?`, id).Error
}

func (r *repo) Recent(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Receipt, error) {
	var receipts []*domain.Receipt
	err := db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Receipt, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Receipt{})

	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where("LOWER(filename) LIKE ? OR LOWER(vendor_name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var receipts []*domain.Receipt
	err := stmt.Order("id asc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&receipts).Error
	if err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}
