package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FilterByKind returns the categories of the given kind, preserving order.
func FilterByKind(categories []Category, kind Kind) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Summary holds the dashboard card counters.
type Summary struct {
	Categories        int
	RevenueCategories int
	ExpenseCategories int
}

func Summarize(categories []Category) Summary {
	s := Summary{Categories: len(categories)}
	for _, c := range categories {
		switch c.Kind {
		case Revenue:
			s.RevenueCategories++
		case Expense:
			s.ExpenseCategories++
		}
	}
	return s
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Kind   Kind
	Amount decimal.Decimal
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Revenue    decimal.Decimal
	Expense    decimal.Decimal
	ByCategory []CategoryAmount
}

func (m MonthOverview) Balance() decimal.Decimal {
	return m.Revenue.Sub(m.Expense)
}

// Report is the monthly breakdown of revenue and expense transactions.
type Report struct {
	Months       []MonthOverview // oldest first
	TotalRevenue decimal.Decimal
	TotalExpense decimal.Decimal
}

func (r Report) Balance() decimal.Decimal {
	return r.TotalRevenue.Sub(r.TotalExpense)
}

// BuildMonthlyReport groups both transaction lists by calendar month.
// Undated transactions count towards the totals but not towards any month.
func BuildMonthlyReport(revenues, expenses []Transaction) Report {
	type monthKey struct{ year, month int }
	months := map[monthKey]*MonthOverview{}
	byCat := map[monthKey]map[string]*CategoryAmount{}

	add := func(t Transaction, kind Kind) {
		if t.Date.IsZero() {
			return
		}
		k := monthKey{t.Date.Year(), int(t.Date.Month())}
		m, ok := months[k]
		if !ok {
			m = &MonthOverview{Year: k.year, Month: k.month}
			months[k] = m
			byCat[k] = map[string]*CategoryAmount{}
		}
		if kind == Revenue {
			m.Revenue = m.Revenue.Add(t.Amount)
		} else {
			m.Expense = m.Expense.Add(t.Amount)
		}
		name := t.CategoryName()
		ca, ok := byCat[k][kind.String()+"/"+name]
		if !ok {
			ca = &CategoryAmount{Name: name, Kind: kind}
			byCat[k][kind.String()+"/"+name] = ca
		}
		ca.Amount = ca.Amount.Add(t.Amount)
	}

	var r Report
	for _, t := range revenues {
		add(t, Revenue)
		r.TotalRevenue = r.TotalRevenue.Add(t.Amount)
	}
	for _, t := range expenses {
		add(t, Expense)
		r.TotalExpense = r.TotalExpense.Add(t.Amount)
	}

	for k, m := range months {
		for _, ca := range byCat[k] {
			m.ByCategory = append(m.ByCategory, *ca)
		}
		sort.Slice(m.ByCategory, func(i, j int) bool {
			a, b := m.ByCategory[i], m.ByCategory[j]
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
			if !a.Amount.Equal(b.Amount) {
				return a.Amount.GreaterThan(b.Amount)
			}
			return a.Name < b.Name
		})
		r.Months = append(r.Months, *m)
	}
	sort.Slice(r.Months, func(i, j int) bool {
		if r.Months[i].Year != r.Months[j].Year {
			return r.Months[i].Year < r.Months[j].Year
		}
		return r.Months[i].Month < r.Months[j].Month
	})
	return r
}
