package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFilterByKindPreservesOrder(t *testing.T) {
	cats := []Category{
		{ID: 3, Name: "Bônus", Kind: Revenue},
		{ID: 1, Name: "Aluguel", Kind: Expense},
		{ID: 2, Name: "Salário", Kind: Revenue},
	}
	got := FilterByKind(cats, Revenue)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(FilterByKind(nil, Expense)) != 0 {
		t.Fatalf("expected empty result for nil input")
	}

	s := Summarize(cats)
	if s.Categories != 3 || s.RevenueCategories != 2 || s.ExpenseCategories != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func tx(desc, amount string, date Date, cat Category) Transaction {
	c := cat
	return Transaction{
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
		CategoryID:  cat.ID,
		Category:    &c,
	}
}

func TestBuildMonthlyReport(t *testing.T) {
	salary := Category{ID: 1, Name: "Salário", Kind: Revenue}
	rent := Category{ID: 2, Name: "Aluguel", Kind: Expense}
	food := Category{ID: 3, Name: "Mercado", Kind: Expense}

	revenues := []Transaction{
		tx("março", "5000", NewDate(2025, 3, 5), salary),
		tx("janeiro", "4800", NewDate(2025, 1, 5), salary),
		tx("sem data", "10", Date{}, salary),
	}
	expenses := []Transaction{
		tx("aluguel", "1500", NewDate(2025, 3, 1), rent),
		tx("feira", "200.50", NewDate(2025, 3, 8), food),
		tx("feira 2", "99.50", NewDate(2025, 3, 20), food),
	}

	r := BuildMonthlyReport(revenues, expenses)
	if len(r.Months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(r.Months))
	}
	jan, mar := r.Months[0], r.Months[1]
	if jan.Month != 1 || mar.Month != 3 {
		t.Fatalf("months not sorted: %d, %d", jan.Month, mar.Month)
	}
	if !mar.Revenue.Equal(decimal.NewFromInt(5000)) || !mar.Expense.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("unexpected march totals: %s / %s", mar.Revenue, mar.Expense)
	}
	if !mar.Balance().Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("unexpected march balance: %s", mar.Balance())
	}
	if len(mar.ByCategory) != 3 {
		t.Fatalf("expected 3 category rows, got %d", len(mar.ByCategory))
	}
	if mar.ByCategory[0].Name != "Salário" || mar.ByCategory[1].Name != "Aluguel" || mar.ByCategory[2].Name != "Mercado" {
		t.Fatalf("unexpected category order: %+v", mar.ByCategory)
	}
	if !mar.ByCategory[2].Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("food total = %s", mar.ByCategory[2].Amount)
	}
	if !r.TotalRevenue.Equal(decimal.NewFromInt(9810)) {
		t.Fatalf("total revenue = %s", r.TotalRevenue)
	}
	if !r.Balance().Equal(decimal.NewFromInt(8010)) {
		t.Fatalf("balance = %s", r.Balance())
	}
}
