package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financas/internal/notify"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if w.Header().Get("X-Custom") != "value" || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected headers %v", w.Header())
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_TriggersKeepOrder(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerNotification(notify.Success("Categoria criada!", "A categoria foi salva com sucesso.")).
		TriggerListChanged("categories").
		TriggerFormReset().
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	want := `{"show-notification":{"description":"A categoria foi salva com sucesso.","duration":3000,` +
		`"message":"Categoria criada!: A categoria foi salva com sucesso.","title":"Categoria criada!","type":"success"},` +
		`"categories:changed":{},"form:reset":{}}`
	if trigger != want {
		t.Fatalf("HX-Trigger =\n%s\nwant\n%s", trigger, want)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(trigger), &decoded); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
}

func TestNotificationsPicksMostSevere(t *testing.T) {
	tests := []struct {
		name string
		in   []notify.Notification
		want string
	}{
		{"none", nil, ""},
		{"single", []notify.Notification{notify.Success("ok", "")}, "success"},
		{"error wins", []notify.Notification{notify.Error("bad", ""), notify.Success("ok", "")}, "error"},
		{"warning over success", []notify.Notification{notify.Success("ok", ""), notify.Warning("hm", "")}, "warning"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHTMXResponse().Notifications(tt.in).Write(w)
			trigger := w.Header().Get("HX-Trigger")
			if tt.want == "" {
				if trigger != "" {
					t.Fatalf("unexpected trigger %s", trigger)
				}
				return
			}
			if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
				t.Fatalf("trigger %s does not carry %s", trigger, tt.want)
			}
		})
	}
}

func TestNotificationDurations(t *testing.T) {
	tests := []struct {
		n    notify.Notification
		want string
	}{
		{notify.Success("a", ""), `"duration":3000`},
		{notify.Warning("a", ""), `"duration":4000`},
		{notify.Error("a", ""), `"duration":5000`},
		{notify.Notification{Level: "custom", Title: "a"}, `"duration":3000`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().TriggerNotification(tt.n).Write(w)
		if trigger := w.Header().Get("HX-Trigger"); !strings.Contains(trigger, tt.want) {
			t.Errorf("%s: trigger %s missing %s", tt.n.Level, trigger, tt.want)
		}
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("Entrada inválida"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `<div class="error">Entrada inválida</div>`,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("Falhou"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `<div class="error">Falhou</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}
