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

// Messages shown for a transaction kind.
type transactionTexts struct {
	success string
	failure string
}

var texts = map[core.Kind]transactionTexts{
	core.Revenue: {success: "Receita criada com sucesso!", failure: "Erro ao criar receita"},
	core.Expense: {success: "Despesa criada com sucesso!", failure: "Erro ao criar despesa"},
}

// TransactionForm holds the raw input of the new-revenue or new-expense form.
type TransactionForm struct {
	Description string
	Amount      string
	CategoryID  string
	Date        string

	// Categories, when set, restricts the selectable category to one of
	// these of the form's kind.
	Categories []core.Category

	// pending is set while a submission is in flight. It is observable
	// through Pending from other goroutines; concurrent submissions are not
	// prevented.
	pending atomic.Bool

	kind  core.Kind
	store ports.TransactionWriter
	deps  Deps
}

func NewTransactionForm(kind core.Kind, store ports.TransactionWriter, deps Deps) *TransactionForm {
	return &TransactionForm{kind: kind, store: store, deps: deps.withDefaults()}
}

func (f *TransactionForm) Kind() core.Kind { return f.kind }

// Pending reports whether a submission is in flight.
func (f *TransactionForm) Pending() bool { return f.pending.Load() }

// SelectableCategories returns the categories the selector should offer.
func (f *TransactionForm) SelectableCategories() []core.Category {
	return core.FilterByKind(f.Categories, f.kind)
}

// Submit validates the input and creates the transaction. On success the
// fields are cleared and the kind's list is invalidated; otherwise the
// fields are kept for correction.
func (f *TransactionForm) Submit(ctx context.Context) Result[core.Transaction] {
	in := core.TransactionInput{
		Description: f.Description,
		Amount:      f.Amount,
		CategoryID:  f.CategoryID,
		Date:        f.Date,
	}
	payload, err := core.ValidateTransactionInput(f.kind, in, f.Categories)
	if err != nil {
		logInvalid(ctx, f.deps.Logger, err)
		f.deps.Notifier.Notify(ctx, validationNotification(err, f.kind))
		return Result[core.Transaction]{Outcome: OutcomeInvalid, Err: err}
	}

	t := texts[f.kind]
	f.pending.Store(true)
	created, err := f.store.Create(ctx, payload)
	f.pending.Store(false)
	if err != nil {
		f.deps.Logger.WarnContext(ctx, "Failed to create transaction",
			applog.NewFields().WithOperation(applog.OpCreate).WithError(err).ToSlice()...)
		f.deps.Notifier.Notify(ctx, notify.Error(t.failure, err.Error()))
		return Result[core.Transaction]{Outcome: OutcomeFailed, Err: err}
	}

	key := query.KeyFor(f.kind)
	f.deps.Invalidator.Invalidate(key)
	f.Description, f.Amount, f.CategoryID, f.Date = "", "", "", ""
	f.deps.Logger.Created(ctx, f.kind.String(), created.ID, key)
	f.deps.Notifier.Notify(ctx, notify.Success(t.success, ""))
	return Result[core.Transaction]{Outcome: OutcomeCreated, Created: created}
}
