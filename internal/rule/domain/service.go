package domain

import (
	"context"
	"errors"

	"github.com/receiptorhq/receiptor/internal/category"
)

type CreateRuleRequest struct {
	Name        string
	Description string
	Conditions  []Condition
	Category    string
	Active      *bool
}

type UpdateRuleRequest struct {
	ID          string
	Name        *string
	Description *string
	Conditions  []Condition
	Category    *string
	Active      *bool
}

type ListRulesResponse struct {
	Rules []Rule `json:"rules"`
}

// Match is a successful classification: the winning rule and its category.
type Match struct {
	RuleID   string
	RuleName string
	Category category.Category
}

// DryRunResult is one receipt's outcome from a rule dry run.
type DryRunResult struct {
	ReceiptID  string  `json:"receipt_id"`
	Filename   string  `json:"filename"`
	VendorName *string `json:"vendor_name,omitempty"`
	Matched    bool    `json:"matched"`
}

// DryRunReport summarizes a dry run of one rule against recent receipts.
type DryRunReport struct {
	RuleID       string         `json:"rule_id"`
	RuleName     string         `json:"rule_name"`
	Results      []DryRunResult `json:"test_results"`
	TotalTested  int            `json:"total_tested"`
	TotalMatched int            `json:"total_matched"`
}

// Suggestion is a proposed rule derived from stored receipt patterns.
type Suggestion struct {
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    *category.Category `json:"category,omitempty"`
	Conditions  []Condition        `json:"conditions"`
}

type Service interface {
	Create(ctx context.Context, req CreateRuleRequest) (Rule, error)
	List(ctx context.Context) (ListRulesResponse, error)
	Update(ctx context.Context, req UpdateRuleRequest) (Rule, error)
	Delete(ctx context.Context, id string) error

	// Classify evaluates active rules against fields in deterministic
	// order (newest rule first) and returns the first full match, or
	// ok=false when no rule matches.
	Classify(ctx context.Context, fields Fields) (Match, bool, error)

	// DryRun evaluates one rule against recent receipts without applying
	// anything, reporting which of them would match.
	DryRun(ctx context.Context, id string) (DryRunReport, error)

	// Suggestions proposes rules derived from stored receipt patterns:
	// frequent vendors with a dominant category, and high-amount flagging.
	Suggestions(ctx context.Context) ([]Suggestion, error)
}

var (
	ErrNotFound         = errors.New("rule_not_found")
	ErrInvalidID        = errors.New("invalid_rule_id")
	ErrInvalidName      = errors.New("invalid_rule_name")
	ErrInvalidCategory  = errors.New("invalid_rule_category")
	ErrInvalidCondition = errors.New("invalid_rule_condition")
	ErrNoConditions     = errors.New("rule_requires_conditions")
)
