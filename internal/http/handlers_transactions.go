package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/forms"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
)

// pagePath is the page and form endpoint of a transaction kind.
func pagePath(kind core.Kind) string {
	if kind == core.Revenue {
		return "/revenues"
	}
	return "/expenses"
}

func pageTitle(kind core.Kind) string {
	if kind == core.Revenue {
		return "Receitas"
	}
	return "Despesas"
}

func (s *Server) transactionForm(kind core.Kind, f *forms.TransactionForm, cats []core.Category, catErr error) transactionFormView {
	v := transactionFormView{
		Kind:        kind,
		Path:        pagePath(kind),
		Description: f.Description,
		Amount:      f.Amount,
		CategoryID:  f.CategoryID,
		Date:        f.Date,
		Categories:  core.FilterByKind(cats, kind),
	}
	if catErr != nil {
		v.CategoriesErr = loadErrorMessage(catErr)
	}
	return v
}

func (s *Server) handleTransactionsPage(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var (
			list   listView[core.Transaction]
			cats   []core.Category
			catErr error
		)
		var g errgroup.Group
		g.Go(func() error {
			list = s.transactionList(ctx, kind)
			return nil
		})
		g.Go(func() error {
			cats, catErr = s.categories(ctx)
			return nil
		})
		_ = g.Wait()
		if catErr != nil {
			s.logLoadError(ctx, query.KeyCategories, catErr)
		}

		empty := forms.NewTransactionForm(kind, nil, forms.Deps{})
		s.render(w, r, "transactions.html", transactionsView{
			Page:    newPage(pageTitle(kind), pagePath(kind)),
			Kind:    kind,
			ListKey: query.KeyFor(kind),
			List:    list,
			Form:    s.transactionForm(kind, empty, cats, catErr),
		})
	}
}

func (s *Server) handleTransactionList(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, "transaction_list", s.transactionList(r.Context(), kind))
	}
}

// handleCreateTransaction submits the revenue or expense form. The category
// list is read through the cache so the selected category can be checked
// against the form's kind; if it cannot be loaded the check is left to the
// backend.
func (s *Server) handleCreateTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p, fail := ParseBodyOrFail(r)
		if fail != nil {
			fail.Write(w)
			return
		}

		cats, catErr := s.categories(ctx)
		if catErr != nil {
			s.logLoadError(ctx, query.KeyCategories, catErr)
		}

		rec := &notify.Recorder{}
		form := forms.NewTransactionForm(kind, s.backend.Transactions(kind), s.formDeps(r, rec))
		form.Description = p.Get("description")
		form.Amount = p.Get("amount")
		form.CategoryID = p.Get("categoryId")
		form.Date = p.Get("date")
		form.Categories = cats
		res := form.Submit(ctx)

		if res.Outcome == forms.OutcomeCreated && !isHTMX(r) {
			http.Redirect(w, r, pagePath(kind), http.StatusSeeOther)
			return
		}

		body, err := s.renderBytes("transaction_form", s.transactionForm(kind, form, cats, catErr))
		if err != nil {
			applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
				applog.NewFields().WithComponent(applog.ComponentTemplate).WithError(err).ToSlice()...)
		}
		resp := NewHTMXResponse().Status(outcomeStatus(res.Outcome)).Notifications(rec.Drain())
		if res.Outcome == forms.OutcomeCreated {
			resp.TriggerListChanged(query.KeyFor(kind)).TriggerFormReset()
		}
		if body != nil {
			resp.BodyHTML(body)
		}
		resp.Write(w)
	}
}
