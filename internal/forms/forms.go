// Package forms turns raw form input into create mutations: validate,
// submit through a port, then invalidate the affected list and notify.
package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
)

type Outcome int

const (
	// OutcomeInvalid means client-side validation failed; nothing was sent.
	OutcomeInvalid Outcome = iota
	// OutcomeCreated means the entity was created and its list invalidated.
	OutcomeCreated
	// OutcomeFailed means the mutation reached the backend and failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeFailed:
		return "failed"
	}
	return "invalid"
}

// Result of a form submission. Created is the server's echo of the new
// entity and is only set for OutcomeCreated.
type Result[T any] struct {
	Outcome Outcome
	Created T
	Err     error
}

// Deps are the collaborators shared by every form.
type Deps struct {
	Invalidator query.Invalidator
	Notifier    notify.Notifier
	Logger      *applog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Invalidator == nil {
		d.Invalidator = query.Fanout(nil)
	}
	if d.Notifier == nil {
		d.Notifier = notify.Multi(nil)
	}
	if d.Logger == nil {
		d.Logger = applog.Nop()
	}
	d.Logger = d.Logger.WithComponent(applog.ComponentForms)
	return d
}

// validationNotification maps a failed rule to the warning shown to the
// user. kind is only used for transaction forms.
func validationNotification(err error, kind core.Kind) notify.Notification {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		return notify.Warning("Dados inválidos", err.Error())
	}
	switch ve.Rule {
	case core.RuleRequired:
		if ve.Field == core.FieldName || ve.Field == core.FieldType {
			return notify.Warning("Campos obrigatórios", "Preencha o nome e selecione o tipo.")
		}
		return notify.Warning("Campos obrigatórios", "Preencha todos os campos antes de salvar.")
	case core.RuleTooLong:
		if ve.Field == core.FieldName {
			return notify.Warning("Nome muito longo",
				fmt.Sprintf("O nome deve ter no máximo %d caracteres.", core.MaxCategoryNameLength))
		}
		return notify.Warning("Descrição muito longa",
			fmt.Sprintf("A descrição deve ter no máximo %d caracteres.", core.MaxDescriptionLength))
	case core.RuleNotANumber, core.RuleNotPositive:
		return notify.Warning("Valor inválido", "Informe um valor numérico maior que zero.")
	case core.RuleInvalidType:
		return notify.Warning("Tipo inválido", "Selecione Receita ou Despesa.")
	case core.RuleInvalidCategory:
		return notify.Warning("Categoria inválida", "Selecione uma categoria da lista.")
	case core.RuleKindMismatch:
		return notify.Warning("Categoria inválida",
			fmt.Sprintf("A categoria selecionada não é do tipo %s.", strings.ToLower(kind.Label())))
	case core.RuleInvalidDate:
		return notify.Warning("Data inválida", "Informe a data no formato AAAA-MM-DD.")
	}
	return notify.Warning("Dados inválidos", err.Error())
}

func logInvalid(ctx context.Context, logger *applog.Logger, err error) {
	fields := applog.NewFields().WithOperation(applog.OpValidate)
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		fields[applog.FieldField] = ve.Field
		fields[applog.FieldRule] = ve.Rule
	}
	logger.DebugContext(ctx, "Form rejected by validation", fields.ToSlice()...)
}
