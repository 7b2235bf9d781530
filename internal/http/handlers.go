package http

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/forms"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
)

// recentCount is how many transactions of each kind the dashboard lists.
const recentCount = 5

func (s *Server) categories(ctx context.Context) ([]core.Category, error) {
	return query.Fetch(ctx, s.cache, query.KeyCategories, s.backend.Categories.List)
}

func (s *Server) transactions(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	store := s.backend.Transactions(kind)
	if store == nil {
		return nil, fmt.Errorf("no transaction store for kind %s", kind)
	}
	return query.Fetch(ctx, s.cache, query.KeyFor(kind), store.List)
}

// formDeps routes a form's notifications both to rec, for the response,
// and to the server-wide notifier.
func (s *Server) formDeps(r *http.Request, rec *notify.Recorder) forms.Deps {
	return forms.Deps{
		Invalidator: s.invalidator,
		Notifier:    notify.Multi{rec, s.notifier},
		Logger:      applog.FromContext(r.Context()),
	}
}

// cachedList loads a collection for a list partial served at path. A read
// that is still waiting on a refetch after reloadWait renders the rows of
// the previous load marked as reloading. A failed load keeps showing the
// previous rows next to the error panel.
func cachedList[T any](ctx context.Context, s *Server, key, path string, fetch func(context.Context) ([]T, error)) listView[T] {
	v := listView[T]{Path: path}
	wctx, cancel := context.WithTimeout(ctx, s.reloadWait)
	items, err := query.Fetch(wctx, s.cache, key, fetch)
	timedOut := err != nil && wctx.Err() != nil && ctx.Err() == nil
	cancel()
	if timedOut {
		if st := query.Snapshot[[]T](s.cache, key); st.IsLoading() && st.HasData {
			v.Items, v.Reloading = st.Data, true
			return v
		}
		items, err = query.Fetch(ctx, s.cache, key, fetch)
	}
	if err != nil {
		s.logLoadError(ctx, key, err)
		v.Err = loadErrorMessage(err)
		if st := query.Snapshot[[]T](s.cache, key); st.IsError() && st.HasData {
			v.Items = st.Data
			v.StaleSince = st.UpdatedAt.Format("15:04")
		}
		return v
	}
	v.Items = items
	return v
}

func (s *Server) categoryList(ctx context.Context) listView[core.Category] {
	return cachedList(ctx, s, query.KeyCategories, "/ui/categories", s.backend.Categories.List)
}

func (s *Server) transactionList(ctx context.Context, kind core.Kind) listView[core.Transaction] {
	key := query.KeyFor(kind)
	store := s.backend.Transactions(kind)
	if store == nil {
		err := fmt.Errorf("no transaction store for kind %s", kind)
		s.logLoadError(ctx, key, err)
		return newListView[core.Transaction](nil, err)
	}
	return cachedList(ctx, s, key, "/ui/"+key, store.List)
}

func (s *Server) logLoadError(ctx context.Context, key string, err error) {
	fields := applog.NewFields().
		WithComponent(applog.ComponentHTTP).
		WithOperation(applog.OpList).
		WithError(err)
	fields[applog.FieldKey] = key
	applog.FromContext(ctx).WarnContext(ctx, "Failed to load collection", fields.ToSlice()...)
}

// dashboardData loads the three collections in parallel. Each failure only
// affects the panel that needs it.
func (s *Server) dashboardData(ctx context.Context) dashboardView {
	var (
		cats           []core.Category
		revs, exps     []core.Transaction
		catErr, revErr error
		expErr         error
	)
	var g errgroup.Group
	g.Go(func() error {
		cats, catErr = s.categories(ctx)
		return nil
	})
	g.Go(func() error {
		revs, revErr = s.transactions(ctx, core.Revenue)
		return nil
	})
	g.Go(func() error {
		exps, expErr = s.transactions(ctx, core.Expense)
		return nil
	})
	_ = g.Wait()

	v := dashboardView{
		Page:     newPage("Painel", "/"),
		Revenues: newListView(recent(revs, recentCount), revErr),
		Expenses: newListView(recent(exps, recentCount), expErr),
	}
	if catErr != nil {
		s.logLoadError(ctx, query.KeyCategories, catErr)
		v.SummaryErr = loadErrorMessage(catErr)
	} else {
		v.Summary = core.Summarize(cats)
	}
	if revErr != nil {
		s.logLoadError(ctx, query.KeyRevenues, revErr)
	}
	if expErr != nil {
		s.logLoadError(ctx, query.KeyExpenses, expErr)
	}
	switch {
	case revErr != nil:
		v.TotalsErr = loadErrorMessage(revErr)
	case expErr != nil:
		v.TotalsErr = loadErrorMessage(expErr)
	default:
		v.TotalRevenue = sumAmounts(revs)
		v.TotalExpense = sumAmounts(exps)
		v.Balance = v.TotalRevenue.Sub(v.TotalExpense)
	}
	return v
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", s.dashboardData(r.Context()))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary", s.dashboardData(r.Context()))
}

// reportData loads both transaction lists; the report needs both.
func (s *Server) reportData(ctx context.Context) (core.Report, error) {
	var revs, exps []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revs, err = s.transactions(gctx, core.Revenue)
		return err
	})
	g.Go(func() error {
		var err error
		exps, err = s.transactions(gctx, core.Expense)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, err
	}
	return core.BuildMonthlyReport(revs, exps), nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	v := reportView{Page: newPage("Relatório", "/reports"), CanExport: s.exporter != nil}
	report, err := s.reportData(r.Context())
	if err != nil {
		s.logLoadError(r.Context(), "report", err)
		v.Err = loadErrorMessage(err)
	} else {
		v.Report = report
	}
	s.render(w, r, "reports.html", v)
}

// handleExportReport writes the current report to the configured exporter
// and answers with a notification only.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.exporter == nil {
		NewHTMXResponse().
			Status(http.StatusServiceUnavailable).
			TriggerNotification(notify.Warning("Exportação indisponível", "Nenhuma planilha configurada.")).
			Write(w)
		return
	}

	report, err := s.reportData(ctx)
	if err != nil {
		s.logLoadError(ctx, "report", err)
		n := notify.Error("Erro ao exportar relatório", err.Error())
		s.notifier.Notify(ctx, n)
		NewHTMXResponse().Status(http.StatusBadGateway).TriggerNotification(n).Write(w)
		return
	}

	ref, err := s.exporter.Export(ctx, report)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Report export failed",
			applog.NewFields().WithComponent(applog.ComponentSheets).WithOperation(applog.OpExport).WithError(err).ToSlice()...)
		n := notify.Error("Erro ao exportar relatório", err.Error())
		s.notifier.Notify(ctx, n)
		NewHTMXResponse().Status(http.StatusBadGateway).TriggerNotification(n).Write(w)
		return
	}

	n := notify.Success("Relatório exportado!", "Planilha atualizada em "+ref+".")
	s.notifier.Notify(ctx, n)
	NewHTMXResponse().TriggerNotification(n).Write(w)
}
