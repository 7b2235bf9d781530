package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindUnknown Kind = iota
	Revenue
	Expense
)

// DateLayout is the ISO-8601 calendar date used on the wire.
const DateLayout = "2006-01-02"

type (
	// Kind classifies a category, and transitively its transactions, as
	// revenue or expense. The numeric value matches the wire code (1/2).
	Kind int

	Date struct {
		time.Time
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Kind Kind   `json:"type"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		CategoryID  int64           `json:"categoryId"`
		Category    *Category       `json:"category,omitempty"` // optional snapshot for display
	}

	CreateCategoryPayload struct {
		Name         string `json:"name"`
		CategoryType int    `json:"categoryType"`
	}

	CreateTransactionPayload struct {
		Description string
		Amount      decimal.Decimal
		CategoryID  int64
		Date        Date
	}
)

var (
	ErrInvalidKind = errors.New("invalid category kind")
	ErrInvalidDate = errors.New("invalid date")
)

// ParseKind accepts the string tags REVENUE/EXPENSE (any case) and the
// numeric codes "1"/"2".
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "REVENUE":
		return Revenue, nil
	case "EXPENSE":
		return Expense, nil
	}
	if code, err := strconv.Atoi(s); err == nil {
		return KindFromCode(code)
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// KindFromCode maps the numeric wire code to a Kind.
func KindFromCode(code int) (Kind, error) {
	switch Kind(code) {
	case Revenue, Expense:
		return Kind(code), nil
	}
	return KindUnknown, fmt.Errorf("%w: code %d", ErrInvalidKind, code)
}

func (k Kind) Valid() bool {
	return k == Revenue || k == Expense
}

// Code returns the numeric wire code (1 revenue, 2 expense).
func (k Kind) Code() int {
	return int(k)
}

func (k Kind) String() string {
	switch k {
	case Revenue:
		return "REVENUE"
	case Expense:
		return "EXPENSE"
	}
	return "UNKNOWN"
}

// Label is the user-facing name of the kind.
func (k Kind) Label() string {
	switch k {
	case Revenue:
		return "Receita"
	case Expense:
		return "Despesa"
	}
	return "Desconhecido"
}

// BadgeClass is the CSS class used to color the kind badge.
func (k Kind) BadgeClass() string {
	if k == Revenue {
		return "badge-revenue"
	}
	return "badge-expense"
}

// UnmarshalJSON normalizes both wire representations, the string tag and
// the integer code, into a Kind.
func (k *Kind) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseKind(s)
		if err != nil {
			return err
		}
		*k = parsed
		return nil
	}
	code, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidKind, b)
	}
	parsed, err := KindFromCode(code)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
	return json.Marshal(k.String())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// timestampLayouts are accepted on decode and truncated to the calendar date
// as written, without converting between zones. Fractional seconds parse
// under either layout.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate parses a YYYY-MM-DD string. ISO timestamps, with or without a
// zone offset, are accepted and truncated to their calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON writes the amount as a JSON number.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Amount json.Number `json:"amount"`
	}{alias: alias(t), Amount: json.Number(t.Amount.String())})
}

// Kind returns the classification inherited from the embedded category, if
// the server sent one.
func (t Transaction) Kind() Kind {
	if t.Category == nil {
		return KindUnknown
	}
	return t.Category.Kind
}

// CategoryName returns the embedded category name or a #id placeholder.
func (t Transaction) CategoryName() string {
	if t.Category != nil && t.Category.Name != "" {
		return t.Category.Name
	}
	return "#" + strconv.FormatInt(t.CategoryID, 10)
}

func (p CreateTransactionPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
		CategoryID  int64       `json:"categoryId"`
		Date        string      `json:"date"`
	}{
		Description: p.Description,
		Amount:      json.Number(p.Amount.String()),
		CategoryID:  p.CategoryID,
		Date:        p.Date.String(),
	})
}

func (p *CreateTransactionPayload) UnmarshalJSON(b []byte) error {
	var wire struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  int64           `json:"categoryId"`
		Date        Date            `json:"date"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*p = CreateTransactionPayload{
		Description: wire.Description,
		Amount:      wire.Amount,
		CategoryID:  wire.CategoryID,
		Date:        wire.Date,
	}
	return nil
}
