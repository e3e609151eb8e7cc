package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/receiptorhq/receiptor/internal/category"
	"gorm.io/datatypes"
)

// Operator compares a receipt field against a condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Field names an extracted receipt attribute a condition can reference.
type Field string

const (
	FieldVendorName  Field = "vendor_name"
	FieldDescription Field = "description"
	FieldFilename    Field = "filename"
	FieldTotalAmount Field = "total_amount"
	FieldTaxAmount   Field = "tax_amount"
)

// Condition is one field comparison. A rule matches only when all of its
// conditions hold.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Rule maps a conjunction of conditions to a target category.
type Rule struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Description string            `json:"description"`
	Conditions  datatypes.JSON    `gorm:"not null" json:"conditions"`
	Category    category.Category `gorm:"not null" json:"category"`
	Active      bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Rule) TableName() string {
	return "ai_rules"
}

// Fields is the evaluation input: the extracted attributes of one receipt.
// Nil pointers mean the field is absent; conditions on absent fields
// evaluate false, never error.
type Fields struct {
	VendorName  *string
	Description *string
	Filename    *string
	TotalAmount *float64
	TaxAmount   *float64
}

// NumericField reports whether conditions on f compare numbers.
func NumericField(f Field) bool {
	switch f {
	case FieldTotalAmount, FieldTaxAmount:
		return true
	default:
		return false
	}
}

// KnownField reports whether f is a recognized condition field.
func KnownField(f Field) bool {
	switch f {
	case FieldVendorName, FieldDescription, FieldFilename, FieldTotalAmount, FieldTaxAmount:
		return true
	default:
		return false
	}
}

// KnownOperator reports whether op is a recognized comparator.
func KnownOperator(op Operator) bool {
	switch op {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpGreaterThan, OpLessThan:
		return true
	default:
		return false
	}
}
