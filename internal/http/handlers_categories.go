package http

import (
	"net/http"

	"financas/internal/core"
	"financas/internal/forms"
	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
)

// outcomeStatus maps a form outcome to the response status. htmx leaves the
// form in place on non-2xx responses, which keeps the user's input.
func outcomeStatus(o forms.Outcome) int {
	switch o {
	case forms.OutcomeCreated:
		return http.StatusOK
	case forms.OutcomeFailed:
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) handleCategoriesPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "categories.html", categoriesView{
		Page: newPage("Categorias", "/categories"),
		List: s.categoryList(r.Context()),
	})
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "category_list", s.categoryList(r.Context()))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, fail := ParseBodyOrFail(r)
	if fail != nil {
		fail.Write(w)
		return
	}

	rec := &notify.Recorder{}
	form := forms.NewCategoryForm(s.backend.Categories, s.formDeps(r, rec))
	form.Name = p.Get("name")
	form.Type = p.Get("type")
	res := form.Submit(r.Context())

	if res.Outcome == forms.OutcomeCreated && !isHTMX(r) {
		http.Redirect(w, r, "/categories", http.StatusSeeOther)
		return
	}

	body, err := s.renderBytes("category_form", categoryFormView{Name: form.Name, Type: form.Type})
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.NewFields().WithComponent(applog.ComponentTemplate).WithError(err).ToSlice()...)
	}
	resp := NewHTMXResponse().Status(outcomeStatus(res.Outcome)).Notifications(rec.Drain())
	if res.Outcome == forms.OutcomeCreated {
		resp.TriggerListChanged(query.KeyCategories).TriggerFormReset()
	}
	if body != nil {
		resp.BodyHTML(body)
	}
	resp.Write(w)
}

// kindOptions lists the choices of the category type selector.
func kindOptions() []core.Kind {
	return []core.Kind{core.Revenue, core.Expense}
}
