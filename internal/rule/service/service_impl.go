package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/receiptorhq/receiptor/internal/audit/domain"
	"github.com/receiptorhq/receiptor/internal/category"
	"github.com/receiptorhq/receiptor/internal/clock"
	extractiondomain "github.com/receiptorhq/receiptor/internal/extraction/domain"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
	"github.com/receiptorhq/receiptor/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	dryRunSampleSize     = 10
	suggestionScanLimit  = 1000
	suggestionMinVendor  = 3
	suggestionHighAmount = 1000.0
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Receipts receiptdomain.Repository
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	receipts receiptdomain.Repository
	audit    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rule.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		receipts: p.Receipts,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRuleRequest) (domain.Rule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Rule{}, domain.ErrInvalidName
	}

	cat, ok := category.Parse(req.Category)
	if !ok {
		return domain.Rule{}, domain.ErrInvalidCategory
	}

	conditions, err := normalizeConditions(req.Conditions)
	if err != nil {
		return domain.Rule{}, err
	}

	encoded, err := json.Marshal(conditions)
	if err != nil {
		return domain.Rule{}, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	rule := domain.Rule{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Conditions:  datatypes.JSON(encoded),
		Category:    cat,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return domain.Rule{}, err
	}

	s.audit.Append(ctx, auditdomain.KindRuleCreated, nil, map[string]any{
		"rule_id":   rule.ID.String(),
		"rule_name": rule.Name,
		"category":  rule.Category.String(),
	})

	return rule, nil
}

func (s *Service) List(ctx context.Context) (domain.ListRulesResponse, error) {
	items, err := s.repo.List(ctx, s.db, false)
	if err != nil {
		return domain.ListRulesResponse{}, err
	}

	rules := make([]domain.Rule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rules = append(rules, *item)
	}
	return domain.ListRulesResponse{Rules: rules}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRuleRequest) (domain.Rule, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Rule{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Rule{}, err
	}
	if existing == nil {
		return domain.Rule{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Rule{}, domain.ErrInvalidName
		}
		existing.Name = name
	}
	if req.Description != nil {
		existing.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		cat, ok := category.Parse(*req.Category)
		if !ok {
			return domain.Rule{}, domain.ErrInvalidCategory
		}
		existing.Category = cat
	}
	if req.Conditions != nil {
		conditions, err := normalizeConditions(req.Conditions)
		if err != nil {
			return domain.Rule{}, err
		}
		encoded, err := json.Marshal(conditions)
		if err != nil {
			return domain.Rule{}, err
		}
		existing.Conditions = datatypes.JSON(encoded)
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return domain.Rule{}, err
	}

	s.audit.Append(ctx, auditdomain.KindRuleUpdated, nil, map[string]any{
		"rule_id":   existing.ID.String(),
		"rule_name": existing.Name,
		"active":    existing.Active,
	})

	return *existing, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		return err
	}

	s.audit.Append(ctx, auditdomain.KindRuleDeleted, nil, map[string]any{
		"rule_id":   existing.ID.String(),
		"rule_name": existing.Name,
	})

	return nil
}

func (s *Service) Classify(ctx context.Context, fields domain.Fields) (domain.Match, bool, error) {
	rules, err := s.repo.List(ctx, s.db, true)
	if err != nil {
		return domain.Match{}, false, err
	}

	// Rules arrive newest-first; the first full match wins so evaluation
	// is deterministic across calls.
	for _, rule := range rules {
		if rule == nil {
			continue
		}

		var conditions []domain.Condition
		if err := json.Unmarshal(rule.Conditions, &conditions); err != nil {
			s.log.Warn("skipping rule with undecodable conditions",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if len(conditions) == 0 {
			continue
		}

		if matchesAll(conditions, fields) {
			return domain.Match{
				RuleID:   rule.ID.String(),
				RuleName: rule.Name,
				Category: rule.Category,
			}, true, nil
		}
	}

	return domain.Match{}, false, nil
}

func (s *Service) DryRun(ctx context.Context, rawID string) (domain.DryRunReport, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.DryRunReport{}, err
	}

	rule, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.DryRunReport{}, err
	}
	if rule == nil {
		return domain.DryRunReport{}, domain.ErrNotFound
	}

	var conditions []domain.Condition
	if err := json.Unmarshal(rule.Conditions, &conditions); err != nil {
		return domain.DryRunReport{}, fmt.Errorf("decode rule conditions: %w", err)
	}

	receipts, err := s.receipts.Recent(ctx, s.db, dryRunSampleSize)
	if err != nil {
		return domain.DryRunReport{}, err
	}

	report := domain.DryRunReport{
		RuleID:   rule.ID.String(),
		RuleName: rule.Name,
	}
	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		fields := fieldsFromReceipt(receipt)
		matched := len(conditions) > 0 && matchesAll(conditions, fields)
		report.Results = append(report.Results, domain.DryRunResult{
			ReceiptID:  receipt.ID.String(),
			Filename:   receipt.Filename,
			VendorName: fields.VendorName,
			Matched:    matched,
		})
		if matched {
			report.TotalMatched++
		}
	}
	report.TotalTested = len(report.Results)

	return report, nil
}

func (s *Service) Suggestions(ctx context.Context) ([]domain.Suggestion, error) {
	receipts, err := s.receipts.Recent(ctx, s.db, suggestionScanLimit)
	if err != nil {
		return nil, err
	}

	type vendorStats struct {
		count      int
		categories map[category.Category]int
	}
	vendors := map[string]*vendorStats{}
	order := []string{}
	highAmount := false

	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		fields := fieldsFromReceipt(receipt)
		if fields.TotalAmount != nil && *fields.TotalAmount > suggestionHighAmount {
			highAmount = true
		}
		if fields.VendorName == nil {
			continue
		}
		vendor := strings.TrimSpace(*fields.VendorName)
		if vendor == "" {
			continue
		}
		stats, ok := vendors[vendor]
		if !ok {
			stats = &vendorStats{categories: map[category.Category]int{}}
			vendors[vendor] = stats
			order = append(order, vendor)
		}
		stats.count++
		if receipt.Category != nil {
			stats.categories[*receipt.Category]++
		}
	}

	suggestions := []domain.Suggestion{}
	for _, vendor := range order {
		stats := vendors[vendor]
		if stats.count < suggestionMinVendor {
			continue
		}
		cat, ok := mostCommonCategory(stats.categories)
		if !ok {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			Type:        "vendor_categorization",
			Title:       fmt.Sprintf("Auto-categorize %s receipts", vendor),
			Description: fmt.Sprintf("Categorize receipts from %s as %s", vendor, cat),
			Category:    &cat,
			Conditions: []domain.Condition{{
				Field:    domain.FieldVendorName,
				Operator: domain.OpContains,
				Value:    vendor,
			}},
		})
	}

	if highAmount {
		suggestions = append(suggestions, domain.Suggestion{
			Type:        "high_amount_review",
			Title:       "Flag high-amount receipts for review",
			Description: "Route receipts over $1000 to manual review",
			Conditions: []domain.Condition{{
				Field:    domain.FieldTotalAmount,
				Operator: domain.OpGreaterThan,
				Value:    "1000",
			}},
		})
	}

	return suggestions, nil
}

// fieldsFromReceipt projects a stored receipt into the field set rules
// evaluate against. Undecodable extracted payloads degrade to filename-only.
func fieldsFromReceipt(receipt *receiptdomain.Receipt) domain.Fields {
	filename := receipt.Filename
	fields := domain.Fields{Filename: &filename}

	if len(receipt.Extracted) == 0 {
		return fields
	}
	var data extractiondomain.ExtractedData
	if err := json.Unmarshal(receipt.Extracted, &data); err != nil {
		return fields
	}

	fields.VendorName = data.VendorName
	fields.Description = data.Description
	fields.TotalAmount = data.TotalAmount
	fields.TaxAmount = data.TaxAmount
	return fields
}

// mostCommonCategory breaks count ties by category name so suggestion
// output is stable across calls.
func mostCommonCategory(counts map[category.Category]int) (category.Category, bool) {
	var best category.Category
	bestCount := 0
	for cat, count := range counts {
		if count > bestCount || (count == bestCount && count > 0 && cat.String() < best.String()) {
			best = cat
			bestCount = count
		}
	}
	return best, bestCount > 0
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// normalizeConditions validates rule shape at creation time. A numeric
// comparator against a text field, or an unparsable numeric value, is a
// configuration error here rather than a silent miss at evaluation time.
func normalizeConditions(conditions []domain.Condition) ([]domain.Condition, error) {
	if len(conditions) == 0 {
		return nil, domain.ErrNoConditions
	}

	out := make([]domain.Condition, 0, len(conditions))
	for _, cond := range conditions {
		cond.Field = domain.Field(strings.ToLower(strings.TrimSpace(string(cond.Field))))
		cond.Operator = domain.Operator(strings.ToLower(strings.TrimSpace(string(cond.Operator))))
		cond.Value = strings.TrimSpace(cond.Value)

		if !domain.KnownField(cond.Field) || !domain.KnownOperator(cond.Operator) || cond.Value == "" {
			return nil, domain.ErrInvalidCondition
		}

		numericOp := cond.Operator == domain.OpGreaterThan || cond.Operator == domain.OpLessThan
		if numericOp && !domain.NumericField(cond.Field) {
			return nil, domain.ErrInvalidCondition
		}
		if domain.NumericField(cond.Field) {
			if !numericOp && cond.Operator != domain.OpEquals {
				return nil, domain.ErrInvalidCondition
			}
			if _, err := strconv.ParseFloat(cond.Value, 64); err != nil {
				return nil, domain.ErrInvalidCondition
			}
		}

		out = append(out, cond)
	}
	return out, nil
}

func matchesAll(conditions []domain.Condition, fields domain.Fields) bool {
	for _, cond := range conditions {
		if !evaluate(cond, fields) {
			return false
		}
	}
	return true
}

func evaluate(cond domain.Condition, fields domain.Fields) bool {
	if domain.NumericField(cond.Field) {
		actual := numericValue(cond.Field, fields)
		if actual == nil {
			return false
		}
		expected, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil {
			return false
		}
		switch cond.Operator {
		case domain.OpEquals:
			return *actual == expected
		case domain.OpGreaterThan:
			return *actual > expected
		case domain.OpLessThan:
			return *actual < expected
		default:
			return false
		}
	}

	actual := textValue(cond.Field, fields)
	if actual == nil {
		return false
	}

	have := strings.ToLower(*actual)
	want := strings.ToLower(cond.Value)

	switch cond.Operator {
	case domain.OpEquals:
		return have == want
	case domain.OpContains:
		return strings.Contains(have, want)
	case domain.OpStartsWith:
		return strings.HasPrefix(have, want)
	case domain.OpEndsWith:
		return strings.HasSuffix(have, want)
	default:
		return false
	}
}

func textValue(field domain.Field, fields domain.Fields) *string {
	switch field {
	case domain.FieldVendorName:
		return fields.VendorName
	case domain.FieldDescription:
		return fields.Description
	case domain.FieldFilename:
		return fields.Filename
	default:
		return nil
	}
}

func numericValue(field domain.Field, fields domain.Fields) *float64 {
	switch field {
	case domain.FieldTotalAmount:
		return fields.TotalAmount
	case domain.FieldTaxAmount:
		return fields.TaxAmount
	default:
		return nil
	}
}
