package http

import (
	"errors"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"

	"financas/internal/api"
	"financas/internal/core"
)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"brl":  core.FormatBRL,
	"date": core.FormatDate,
	"negative": func(d decimal.Decimal) bool {
		return d.IsNegative()
	},
	"kinds": kindOptions,
	"itoa": func(id int64) string {
		return strconv.FormatInt(id, 10)
	},
}

// Nav entries shown on every page.
type navItem struct {
	Path, Label string
	Active      bool
}

type Page struct {
	Title string
	Nav   []navItem
}

func newPage(title, active string) Page {
	items := []navItem{
		{Path: "/", Label: "Painel"},
		{Path: "/categories", Label: "Categorias"},
		{Path: "/revenues", Label: "Receitas"},
		{Path: "/expenses", Label: "Despesas"},
		{Path: "/reports", Label: "Relatório"},
	}
	for i := range items {
		items[i].Active = items[i].Path == active
	}
	return Page{Title: title, Nav: items}
}

// listView is a collection as shown by a list partial. Err is the
// user-facing load failure. Items may still hold the rows of an earlier
// load: while a refetch is running (Reloading) or after it failed
// (StaleSince names when they were loaded).
type listView[T any] struct {
	Items []T
	Err   string
	// Path is the partial endpoint polled while Reloading.
	Path string
	Reloading  bool
	StaleSince string
}

func newListView[T any](items []T, err error) listView[T] {
	if err != nil {
		return listView[T]{Err: loadErrorMessage(err)}
	}
	return listView[T]{Items: items}
}

// loadErrorMessage is the text of the "could not load" panel.
func loadErrorMessage(err error) string {
	var rf *api.RequestFailedError
	if errors.As(err, &rf) {
		return "Não foi possível carregar os dados. " + rf.Error()
	}
	return "Não foi possível carregar os dados."
}

type categoryFormView struct {
	Name, Type string
}

type transactionFormView struct {
	Kind        core.Kind
	Path        string
	Description string
	Amount      string
	CategoryID  string
	Date        string
	Categories  []core.Category
	// CategoriesErr is set when the selector could not be filled.
	CategoriesErr string
}

type dashboardView struct {
	Page
	Summary      core.Summary
	SummaryErr   string
	TotalRevenue decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
	TotalsErr    string
	Revenues     listView[core.Transaction]
	Expenses     listView[core.Transaction]
}

type categoriesView struct {
	Page
	List listView[core.Category]
	Form categoryFormView
}

type transactionsView struct {
	Page
	Kind core.Kind
	// ListKey names the list partial and its change event.
	ListKey string
	List    listView[core.Transaction]
	Form    transactionFormView
}

type reportView struct {
	Page
	Report    core.Report
	Err       string
	CanExport bool
}

// sumAmounts totals a transaction list.
func sumAmounts(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// recent returns at most n transactions from the end of the list, newest
// last as the server sent them.
func recent(txs []core.Transaction, n int) []core.Transaction {
	if len(txs) <= n {
		return txs
	}
	return txs[len(txs)-n:]
}
