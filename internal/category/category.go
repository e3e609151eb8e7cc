// Package category defines the fixed business-expense taxonomy receipts
// are classified into.
package category

import "strings"

type Category string

const (
	OfficeSupplies       Category = "office_supplies"
	MealsEntertainment   Category = "meals_entertainment"
	Travel               Category = "travel"
	Fuel                 Category = "fuel"
	Equipment            Category = "equipment"
	ProfessionalServices Category = "professional_services"
	Utilities            Category = "utilities"
	Rent                 Category = "rent"
	Marketing            Category = "marketing"
	Software             Category = "software"
	Other                Category = "other"
)

// All returns the recognized categories in display order.
func All() []Category {
	return []Category{
		OfficeSupplies,
		MealsEntertainment,
		Travel,
		Fuel,
		Equipment,
		ProfessionalServices,
		Utilities,
		Rent,
		Marketing,
		Software,
		Other,
	}
}

// Parse returns the category for value, reporting whether it is recognized.
func Parse(value string) (Category, bool) {
	candidate := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, c := range All() {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string {
	return string(c)
}
