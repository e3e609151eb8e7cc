package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/receiptorhq/receiptor/internal/audit/domain"
	"github.com/receiptorhq/receiptor/internal/category"
	"github.com/receiptorhq/receiptor/internal/clock"
	extractiondomain "github.com/receiptorhq/receiptor/internal/extraction/domain"
	"github.com/receiptorhq/receiptor/internal/filestore"
	"github.com/receiptorhq/receiptor/internal/keylock"
	"github.com/receiptorhq/receiptor/internal/observability/metrics"
	"github.com/receiptorhq/receiptor/internal/receipt/domain"
	ruledomain "github.com/receiptorhq/receiptor/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var allowedMimeTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"application/pdf": {},
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Files     *filestore.Store
	Extractor extractiondomain.Extractor
	Rules     ruledomain.Service
	Audit     auditdomain.Service
	Locks     *keylock.KeyedMutex
	Metrics   *metrics.PipelineMetrics
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	files     *filestore.Store
	extractor extractiondomain.Extractor
	rules     ruledomain.Service
	audit     auditdomain.Service
	locks     *keylock.KeyedMutex
	metrics   *metrics.PipelineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("receipt.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		files:     p.Files,
		extractor: p.Extractor,
		rules:     p.Rules,
		audit:     p.Audit,
		locks:     p.Locks,
		metrics:   p.Metrics,
	}
}

func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (domain.Receipt, error) {
	mimeType := strings.ToLower(strings.TrimSpace(req.MimeType))
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return domain.Receipt{}, domain.ErrInvalidMimeType
	}
	if len(req.Data) > domain.MaxFileSize {
		return domain.Receipt{}, domain.ErrFileTooLarge
	}

	id := s.genID.Generate()
	fileRef, err := s.files.Save(id.String(), req.Filename, req.Data)
	if err != nil {
		return domain.Receipt{}, err
	}

	now := s.clock.Now()
	receipt := domain.Receipt{
		ID:         id,
		Filename:   req.Filename,
		FileRef:    fileRef,
		FileSize:   int64(len(req.Data)),
		MimeType:   mimeType,
		UploadedAt: now,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Persist pending before extraction so a mid-pipeline crash still
	// leaves the upload observable.
	if err := s.repo.Insert(ctx, s.db, &receipt); err != nil {
		s.files.Remove(fileRef)
		return domain.Receipt{}, err
	}

	s.audit.Append(ctx, auditdomain.KindReceiptUploaded, &receipt.ID, map[string]any{
		"filename":  receipt.Filename,
		"file_size": receipt.FileSize,
		"mime_type": receipt.MimeType,
	})

	return s.runPipeline(ctx, receipt.ID)
}

func (s *Service) Reclassify(ctx context.Context, rawID string) (domain.Receipt, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return s.runPipeline(ctx, id)
}

// runPipeline executes the processing -> extraction -> classification steps
// under the receipt's keyed lock. The record and its stored bytes are read
// only after the lock is held, so a concurrent edit is never overwritten
// with a stale snapshot. The lock is in-process only; no store lock is held
// while the extractor runs, and the outcome is written in a single atomic
// update.
func (s *Service) runPipeline(ctx context.Context, id snowflake.ID) (domain.Receipt, error) {
	key := id.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if current == nil {
		return domain.Receipt{}, domain.ErrNotFound
	}
	receipt := *current

	data, err := s.files.Load(receipt.FileRef)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt.Status = domain.StatusProcessing
	receipt.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &receipt); err != nil {
		return domain.Receipt{}, err
	}

	result, err := s.extractor.Extract(ctx, data, receipt.MimeType)
	if err != nil {
		s.log.Warn("extraction failed",
			zap.String("receipt_id", key),
			zap.Error(err),
		)

		// The caller's deadline may be what killed the extractor, so the
		// terminal state is persisted on a detached context; otherwise the
		// receipt would be stranded in processing.
		failCtx := context.WithoutCancel(ctx)

		receipt.Status = domain.StatusFailed
		receipt.UpdatedAt = s.clock.Now()
		if updateErr := s.repo.Update(failCtx, s.db, &receipt); updateErr != nil {
			return domain.Receipt{}, updateErr
		}

		s.audit.Append(failCtx, auditdomain.KindExtractionFailed, &receipt.ID, map[string]any{
			"error": err.Error(),
		})
		s.metrics.RecordExtractionFailure()
		s.metrics.RecordProcessed(string(domain.StatusFailed))

		// The upload is not rolled back; the caller gets the failed
		// record to inspect and retry from.
		return receipt, nil
	}

	extracted, err := json.Marshal(result.Data)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt.Status = domain.StatusCompleted
	receipt.Extracted = datatypes.JSON(extracted)
	receipt.VendorName = result.Data.VendorName
	confidence := result.Confidence
	receipt.ConfidenceScore = &confidence

	match, matched, err := s.rules.Classify(ctx, ruledomain.Fields{
		VendorName:  result.Data.VendorName,
		Description: result.Data.Description,
		Filename:    &receipt.Filename,
		TotalAmount: result.Data.TotalAmount,
		TaxAmount:   result.Data.TaxAmount,
	})
	if err != nil {
		// Classification trouble is not an extraction failure; keep the
		// completed receipt and route it to manual review.
		s.log.Warn("rule evaluation failed",
			zap.String("receipt_id", key),
			zap.Error(err),
		)
		matched = false
	}

	classifiedAs := "unclassified"
	auditMeta := map[string]any{}
	if matched {
		receipt.Category = &match.Category
		receipt.ManualReview = false
		classifiedAs = match.Category.String()
		auditMeta["rule_id"] = match.RuleID
		auditMeta["rule_name"] = match.RuleName
		s.metrics.RecordRuleMatch()
	} else {
		receipt.Category = nil
		receipt.ManualReview = true
		s.metrics.RecordManualReview()
	}
	auditMeta["category"] = classifiedAs
	auditMeta["confidence_score"] = result.Confidence

	receipt.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &receipt); err != nil {
		return domain.Receipt{}, err
	}

	s.audit.Append(ctx, auditdomain.KindReceiptClassified, &receipt.ID, auditMeta)
	s.metrics.RecordProcessed(string(domain.StatusCompleted))

	return receipt, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Receipt, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if receipt == nil {
		return domain.Receipt{}, domain.ErrNotFound
	}
	return *receipt, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Search: strings.TrimSpace(req.Search),
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if req.Category != "" {
		cat, ok := category.Parse(req.Category)
		if !ok {
			return domain.ListResponse{}, domain.ErrInvalidCategory
		}
		filter.Category = cat.String()
	}
	if req.Status != "" {
		status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
		if !domain.KnownStatus(status) {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	receipts := make([]domain.Receipt, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		receipts = append(receipts, *item)
	}
	return domain.ListResponse{Receipts: receipts, Total: total}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Receipt, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Receipt{}, err
	}

	key := id.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Receipt{}, err
	}
	if existing == nil {
		return domain.Receipt{}, domain.ErrNotFound
	}

	changed := map[string]any{}

	if req.Status != nil {
		status := domain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !domain.KnownStatus(status) {
			return domain.Receipt{}, domain.ErrInvalidStatus
		}
		if !domain.CanTransition(existing.Status, status) {
			return domain.Receipt{}, domain.ErrStatusRegression
		}
		existing.Status = status
		changed["processing_status"] = status
	}
	if req.Category != nil {
		if *req.Category == "" {
			existing.Category = nil
			existing.ManualReview = existing.Status == domain.StatusCompleted
			changed["category"] = "unclassified"
		} else {
			cat, ok := category.Parse(*req.Category)
			if !ok {
				return domain.Receipt{}, domain.ErrInvalidCategory
			}
			existing.Category = &cat
			existing.ManualReview = false
			changed["category"] = cat.String()
		}
	}
	if req.Tags != nil {
		encoded, err := json.Marshal(req.Tags)
		if err != nil {
			return domain.Receipt{}, err
		}
		existing.Tags = datatypes.JSON(encoded)
		changed["tags"] = req.Tags
	}
	if req.Notes != nil {
		existing.Notes = *req.Notes
		changed["notes"] = *req.Notes
	}

	existing.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return domain.Receipt{}, err
	}

	if len(changed) > 0 {
		s.audit.Append(ctx, auditdomain.KindReceiptUpdated, &existing.ID, changed)
	}

	return *existing, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	key := id.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		// Idempotent: the record is already gone.
		return nil
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}

	s.files.Remove(existing.FileRef)
	s.audit.Append(ctx, auditdomain.KindReceiptDeleted, &id, map[string]any{
		"filename": existing.Filename,
	})

	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
