package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/receiptorhq/receiptor/internal/audit/domain"
	auditrepo "github.com/receiptorhq/receiptor/internal/audit/repository"
	auditservice "github.com/receiptorhq/receiptor/internal/audit/service"
	"github.com/receiptorhq/receiptor/internal/category"
	"github.com/receiptorhq/receiptor/internal/clock"
	receiptdomain "github.com/receiptorhq/receiptor/internal/receipt/domain"
	receiptrepo "github.com/receiptorhq/receiptor/internal/receipt/repository"
	"github.com/receiptorhq/receiptor/internal/rule/domain"
	"github.com/receiptorhq/receiptor/internal/rule/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	svc, fc, _ := newTestFixture(t)
	return svc, fc
}

func newTestFixture(t *testing.T) (domain.Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Rule{}, &receiptdomain.Receipt{}, &auditdomain.Event{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	audit := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Repo:  auditrepo.Provide(),
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fc,
		Repo:     repository.Provide(),
		Receipts: receiptrepo.Provide(),
		Audit:    audit,
	})
	return svc, fc, db
}

func str(s string) *string   { return &s }
func f64(v float64) *float64 { return &v }
func boolPtr(v bool) *bool   { return &v }

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRuleRequest
		want error
	}{
		{
			name: "empty name",
			req: domain.CreateRuleRequest{
				Name:       "  ",
				Category:   "meals_entertainment",
				Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
			},
			want: domain.ErrInvalidName,
		},
		{
			name: "unknown category",
			req: domain.CreateRuleRequest{
				Name:       "Cafe",
				Category:   "snacks",
				Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
			},
			want: domain.ErrInvalidCategory,
		},
		{
			name: "no conditions",
			req: domain.CreateRuleRequest{
				Name:     "Cafe",
				Category: "meals_entertainment",
			},
			want: domain.ErrNoConditions,
		},
		{
			name: "unknown field",
			req: domain.CreateRuleRequest{
				Name:       "Cafe",
				Category:   "meals_entertainment",
				Conditions: []domain.Condition{{Field: "merchant", Operator: domain.OpContains, Value: "cafe"}},
			},
			want: domain.ErrInvalidCondition,
		},
		{
			name: "numeric operator on text field",
			req: domain.CreateRuleRequest{
				Name:       "Cafe",
				Category:   "meals_entertainment",
				Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpGreaterThan, Value: "10"}},
			},
			want: domain.ErrInvalidCondition,
		},
		{
			name: "unparsable numeric value",
			req: domain.CreateRuleRequest{
				Name:       "Big spend",
				Category:   "travel",
				Conditions: []domain.Condition{{Field: domain.FieldTotalAmount, Operator: domain.OpGreaterThan, Value: "lots"}},
			},
			want: domain.ErrInvalidCondition,
		},
		{
			name: "contains on numeric field",
			req: domain.CreateRuleRequest{
				Name:       "Big spend",
				Category:   "travel",
				Conditions: []domain.Condition{{Field: domain.FieldTotalAmount, Operator: domain.OpContains, Value: "10"}},
			},
			want: domain.ErrInvalidCondition,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_NormalizesConditions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rule, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:     "Coffee shops",
		Category: "meals_entertainment",
		Conditions: []domain.Condition{
			{Field: "VENDOR_NAME", Operator: "Contains", Value: " coffee "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, category.MealsEntertainment, rule.Category)
	assert.True(t, rule.Active)
	assert.JSONEq(t, `[{"field":"vendor_name","operator":"contains","value":"coffee"}]`, string(rule.Conditions))
}

func TestClassify_FirstMatchIsNewestRule(t *testing.T) {
	svc, fc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Older",
		Category:   "office_supplies",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "store"}},
	})
	require.NoError(t, err)

	fc.Advance(time.Minute)
	newer, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Newer",
		Category:   "software",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "store"}},
	})
	require.NoError(t, err)

	match, ok, err := svc.Classify(ctx, domain.Fields{VendorName: str("App Store")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer.ID.String(), match.RuleID)
	assert.Equal(t, category.Software, match.Category)

	// Repeated evaluation over the same rule set is deterministic.
	for i := 0; i < 5; i++ {
		again, ok, err := svc.Classify(ctx, domain.Fields{VendorName: str("App Store")})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, match, again)
	}
}

func TestClassify_TieBreakWithinSameTimestamp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Same clock reading for both rules; the larger (later-generated) id wins.
	first, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "First",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Second",
		Category:   "travel",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
	})
	require.NoError(t, err)
	require.Greater(t, int64(second.ID), int64(first.ID))

	match, ok, err := svc.Classify(ctx, domain.Fields{VendorName: str("Blue Cafe")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID.String(), match.RuleID)
}

func TestClassify_AllConditionsMustHold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:     "Expensive coffee",
		Category: "meals_entertainment",
		Conditions: []domain.Condition{
			{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "coffee"},
			{Field: domain.FieldTotalAmount, Operator: domain.OpGreaterThan, Value: "20"},
		},
	})
	require.NoError(t, err)

	_, ok, err := svc.Classify(ctx, domain.Fields{
		VendorName:  str("Corner Coffee"),
		TotalAmount: f64(9.83),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	match, ok, err := svc.Classify(ctx, domain.Fields{
		VendorName:  str("Corner Coffee"),
		TotalAmount: f64(25.00),
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, category.MealsEntertainment, match.Category)
}

func TestClassify_AbsentFieldEvaluatesFalse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Vendor rule",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
	})
	require.NoError(t, err)

	_, ok, err := svc.Classify(ctx, domain.Fields{Filename: str("cafe_receipt.pdf")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassify_TextComparatorsAreCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:     "Airlines",
		Category: "travel",
		Conditions: []domain.Condition{
			{Field: domain.FieldVendorName, Operator: domain.OpStartsWith, Value: "UNITED"},
		},
	})
	require.NoError(t, err)

	match, ok, err := svc.Classify(ctx, domain.Fields{VendorName: str("united airlines")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, category.Travel, match.Category)
}

func TestClassify_InactiveRulesAreSkipped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Disabled",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
		Active:     boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, created.Active)

	_, ok, err := svc.Classify(ctx, domain.Fields{VendorName: str("Blue Cafe")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	svc, fc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Cafe",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
	})
	require.NoError(t, err)

	fc.Advance(time.Hour)
	updated, err := svc.Update(ctx, domain.UpdateRuleRequest{
		ID:       created.ID.String(),
		Name:     str("Restaurants"),
		Category: str("meals_entertainment"),
		Active:   boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Restaurants", updated.Name)
	assert.False(t, updated.Active)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	// Untouched fields survive a partial update.
	assert.Equal(t, created.Conditions, updated.Conditions)

	_, err = svc.Update(ctx, domain.UpdateRuleRequest{ID: "999999", Name: str("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Update(ctx, domain.UpdateRuleRequest{ID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Cafe",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "cafe"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)

	resp, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.Rules)
}

type receiptSeed struct {
	vendor   string
	amount   float64
	category *category.Category
}

func seedReceipts(t *testing.T, db *gorm.DB, seeds []receiptSeed) {
	t.Helper()
	for i, seed := range seeds {
		extracted, err := json.Marshal(map[string]any{
			"vendor_name":  seed.vendor,
			"total_amount": seed.amount,
		})
		require.NoError(t, err)

		now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		receipt := receiptdomain.Receipt{
			ID:         snowflake.ID(1000 + i),
			Filename:   fmt.Sprintf("receipt_%d.png", i),
			FileRef:    fmt.Sprintf("receipt_%d.png", i),
			FileSize:   1,
			MimeType:   "image/png",
			UploadedAt: now,
			Status:     receiptdomain.StatusCompleted,
			Extracted:  datatypes.JSON(extracted),
			Category:   seed.category,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		require.NoError(t, db.Create(&receipt).Error)
	}
}

func TestDryRun_ReportsMatchesAgainstRecentReceipts(t *testing.T) {
	svc, _, db := newTestFixture(t)
	ctx := context.Background()

	seedReceipts(t, db, []receiptSeed{
		{vendor: "Starbucks Coffee", amount: 9.83},
		{vendor: "Office Depot", amount: 120},
		{vendor: "Starbucks Reserve", amount: 14.5},
	})

	rule, err := svc.Create(ctx, domain.CreateRuleRequest{
		Name:       "Coffee shops",
		Category:   "meals_entertainment",
		Conditions: []domain.Condition{{Field: domain.FieldVendorName, Operator: domain.OpContains, Value: "starbucks"}},
	})
	require.NoError(t, err)

	report, err := svc.DryRun(ctx, rule.ID.String())
	require.NoError(t, err)
	assert.Equal(t, rule.ID.String(), report.RuleID)
	assert.Equal(t, "Coffee shops", report.RuleName)
	assert.Equal(t, 3, report.TotalTested)
	assert.Equal(t, 2, report.TotalMatched)

	// Newest receipt first; the middle seed does not match.
	require.Len(t, report.Results, 3)
	require.NotNil(t, report.Results[0].VendorName)
	assert.Equal(t, "Starbucks Reserve", *report.Results[0].VendorName)
	assert.True(t, report.Results[0].Matched)
	assert.False(t, report.Results[1].Matched)
	assert.True(t, report.Results[2].Matched)

	// A dry run must not categorize anything.
	var stored []receiptdomain.Receipt
	require.NoError(t, db.Find(&stored).Error)
	for _, r := range stored {
		assert.Nil(t, r.Category)
	}
}

func TestDryRun_UnknownRule(t *testing.T) {
	svc, _, _ := newTestFixture(t)

	_, err := svc.DryRun(context.Background(), "999999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.DryRun(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSuggestions_VendorPatternsAndHighAmounts(t *testing.T) {
	svc, _, db := newTestFixture(t)

	meals := category.MealsEntertainment
	office := category.OfficeSupplies
	seedReceipts(t, db, []receiptSeed{
		{vendor: "Starbucks Coffee", amount: 9.83, category: &meals},
		{vendor: "Starbucks Coffee", amount: 4.50, category: &meals},
		{vendor: "Starbucks Coffee", amount: 7.20, category: &office},
		{vendor: "Office Depot", amount: 120, category: &office},
		{vendor: "Dell", amount: 1899.99},
	})

	suggestions, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	vendorRule := suggestions[0]
	assert.Equal(t, "vendor_categorization", vendorRule.Type)
	require.NotNil(t, vendorRule.Category)
	assert.Equal(t, category.MealsEntertainment, *vendorRule.Category)
	require.Len(t, vendorRule.Conditions, 1)
	assert.Equal(t, domain.FieldVendorName, vendorRule.Conditions[0].Field)
	assert.Equal(t, domain.OpContains, vendorRule.Conditions[0].Operator)
	assert.Equal(t, "Starbucks Coffee", vendorRule.Conditions[0].Value)

	highAmount := suggestions[1]
	assert.Equal(t, "high_amount_review", highAmount.Type)
	assert.Nil(t, highAmount.Category)
	require.Len(t, highAmount.Conditions, 1)
	assert.Equal(t, domain.FieldTotalAmount, highAmount.Conditions[0].Field)
	assert.Equal(t, domain.OpGreaterThan, highAmount.Conditions[0].Operator)
}

func TestSuggestions_EmptyStore(t *testing.T) {
	svc, _, _ := newTestFixture(t)

	suggestions, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}
