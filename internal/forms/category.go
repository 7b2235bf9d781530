package forms

import (
	"context"
	"sync/atomic"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/ports"
	"financas/internal/query"
)

// CategoryForm holds the raw input of the new-category form.
type CategoryForm struct {
	Name string
	Type string // REVENUE, EXPENSE, 1 or 2

	// pending is set while a submission is in flight. It is observable
	// through Pending from other goroutines; concurrent submissions are not
	// prevented.
	pending atomic.Bool

	store ports.CategoryWriter
	deps  Deps
}

func NewCategoryForm(store ports.CategoryWriter, deps Deps) *CategoryForm {
	return &CategoryForm{store: store, deps: deps.withDefaults()}
}

// Pending reports whether a submission is in flight.
func (f *CategoryForm) Pending() bool { return f.pending.Load() }

// Submit validates the input and creates the category. On success the
// fields are cleared and the category list is invalidated; otherwise the
// fields are kept for correction.
func (f *CategoryForm) Submit(ctx context.Context) Result[core.Category] {
	payload, err := core.ValidateCategoryInput(f.Name, f.Type)
	if err != nil {
		logInvalid(ctx, f.deps.Logger, err)
		f.deps.Notifier.Notify(ctx, validationNotification(err, core.KindUnknown))
		return Result[core.Category]{Outcome: OutcomeInvalid, Err: err}
	}

	f.pending.Store(true)
	created, err := f.store.Create(ctx, payload)
	f.pending.Store(false)
	if err != nil {
		f.deps.Logger.WarnContext(ctx, "Failed to create category",
			applog.NewFields().WithOperation(applog.OpCreate).WithError(err).ToSlice()...)
		f.deps.Notifier.Notify(ctx, notify.Error("Erro ao criar categoria", err.Error()))
		return Result[core.Category]{Outcome: OutcomeFailed, Err: err}
	}

	f.deps.Invalidator.Invalidate(query.KeyCategories)
	f.Name, f.Type = "", ""
	f.deps.Logger.Created(ctx, created.Kind.String(), created.ID, query.KeyCategories)
	f.deps.Notifier.Notify(ctx, notify.Success("Categoria criada!", "A categoria foi salva com sucesso."))
	return Result[core.Category]{Outcome: OutcomeCreated, Created: created}
}
