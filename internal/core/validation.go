package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 150
)

// Form fields checked before any network call.
const (
	FieldName        = "name"
	FieldType        = "type"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCategory    = "categoryId"
	FieldDate        = "date"
)

// Validation rules reported in ValidationError.Rule.
const (
	RuleRequired        = "required"
	RuleTooLong         = "too_long"
	RuleNotANumber      = "not_a_number"
	RuleNotPositive     = "not_positive"
	RuleInvalidType     = "invalid_type"
	RuleInvalidCategory = "invalid_category"
	RuleKindMismatch    = "category_kind_mismatch"
	RuleInvalidDate     = "invalid_date"
)

// ValidationError reports the first client-side rule a form violated.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Rule)
}

func invalid(field, rule string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule}
}

// ValidateCategoryInput checks raw category form input and builds the
// create payload.
func ValidateCategoryInput(name, kind string) (CreateCategoryPayload, error) {
	name = strings.TrimSpace(name)
	kind = strings.TrimSpace(kind)
	if name == "" {
		return CreateCategoryPayload{}, invalid(FieldName, RuleRequired)
	}
	if kind == "" {
		return CreateCategoryPayload{}, invalid(FieldType, RuleRequired)
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return CreateCategoryPayload{}, invalid(FieldName, RuleTooLong)
	}
	k, err := ParseKind(kind)
	if err != nil {
		return CreateCategoryPayload{}, invalid(FieldType, RuleInvalidType)
	}
	return CreateCategoryPayload{Name: name, CategoryType: k.Code()}, nil
}

// TransactionInput is the raw content of a revenue or expense form.
type TransactionInput struct {
	Description string
	Amount      string
	CategoryID  string
	Date        string
}

// ValidateTransactionInput checks raw transaction form input for the given
// kind and builds the create payload. When categories is non-nil the
// selected category must be one of them and must have the same kind.
func ValidateTransactionInput(kind Kind, in TransactionInput, categories []Category) (CreateTransactionPayload, error) {
	desc := strings.TrimSpace(in.Description)
	amountStr := strings.TrimSpace(in.Amount)
	catStr := strings.TrimSpace(in.CategoryID)
	dateStr := strings.TrimSpace(in.Date)

	switch {
	case desc == "":
		return CreateTransactionPayload{}, invalid(FieldDescription, RuleRequired)
	case amountStr == "":
		return CreateTransactionPayload{}, invalid(FieldAmount, RuleRequired)
	case catStr == "":
		return CreateTransactionPayload{}, invalid(FieldCategory, RuleRequired)
	case dateStr == "":
		return CreateTransactionPayload{}, invalid(FieldDate, RuleRequired)
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return CreateTransactionPayload{}, invalid(FieldDescription, RuleTooLong)
	}

	amount, err := ParseAmount(amountStr)
	if err != nil {
		return CreateTransactionPayload{}, invalid(FieldAmount, RuleNotANumber)
	}
	if !amount.IsPositive() {
		return CreateTransactionPayload{}, invalid(FieldAmount, RuleNotPositive)
	}

	catID, err := strconv.ParseInt(catStr, 10, 64)
	if err != nil || catID <= 0 {
		return CreateTransactionPayload{}, invalid(FieldCategory, RuleInvalidCategory)
	}
	if categories != nil {
		cat, ok := findCategory(categories, catID)
		if !ok {
			return CreateTransactionPayload{}, invalid(FieldCategory, RuleInvalidCategory)
		}
		if cat.Kind != kind {
			return CreateTransactionPayload{}, invalid(FieldCategory, RuleKindMismatch)
		}
	}

	date, err := ParseDate(dateStr)
	if err != nil {
		return CreateTransactionPayload{}, invalid(FieldDate, RuleInvalidDate)
	}

	return CreateTransactionPayload{
		Description: desc,
		Amount:      amount,
		CategoryID:  catID,
		Date:        date,
	}, nil
}

func findCategory(categories []Category, id int64) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
