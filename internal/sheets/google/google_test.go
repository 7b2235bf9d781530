package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"financas/internal/core"
)

func sampleReport() core.Report {
	revs := []core.Transaction{
		{Description: "Salário", Amount: decimal.NewFromInt(5000), Date: core.NewDate(2025, 1, 5), CategoryID: 1},
		{Description: "Freela", Amount: decimal.RequireFromString("810"), Date: core.NewDate(2025, 2, 10), CategoryID: 2},
	}
	exps := []core.Transaction{
		{Description: "Aluguel", Amount: decimal.RequireFromString("1500.5"), Date: core.NewDate(2025, 1, 10), CategoryID: 3},
	}
	return core.BuildMonthlyReport(revs, exps)
}

func TestReportRows(t *testing.T) {
	rows := ReportRows(sampleReport())
	if len(rows) != 4 {
		t.Fatalf("expected header, 2 months and total, got %d rows: %v", len(rows), rows)
	}
	if rows[0][0] != "Mês" || rows[0][3] != "Saldo" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2025-01" || rows[1][1] != 5000.0 || rows[1][2] != 1500.5 || rows[1][3] != 3499.5 {
		t.Errorf("unexpected january row %v", rows[1])
	}
	if rows[2][0] != "2025-02" || rows[2][2] != 0.0 {
		t.Errorf("unexpected february row %v", rows[2])
	}
	if rows[3][0] != "Total" || rows[3][1] != 5810.0 || rows[3][3] != 4309.5 {
		t.Errorf("unexpected total row %v", rows[3])
	}
}

func TestReportRowsEmpty(t *testing.T) {
	rows := ReportRows(core.Report{})
	if len(rows) != 2 || rows[1][0] != "Total" {
		t.Fatalf("empty report should still have header and total, got %v", rows)
	}
}

func TestNewRequiresTarget(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{SheetName: "Relatorio"}, nil); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	if _, err := New(ctx, Config{SpreadsheetID: "id"}, nil); err == nil {
		t.Fatal("expected error for missing sheet name")
	}
	missing := filepath.Join(t.TempDir(), "nope.json")
	_, err := New(ctx, Config{SpreadsheetID: "id", SheetName: "Relatorio", CredentialsFile: missing}, nil)
	if err == nil || !strings.Contains(err.Error(), "service account file") {
		t.Fatalf("expected service account file error, got %v", err)
	}
}

func TestCredentialOptions(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"none", Config{}, 0},
		{"inline", Config{CredentialsJSON: `{"type":"service_account"}`}, 2},
		{"file", Config{CredentialsFile: file}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := credentialOptions(tt.cfg)
			if err != nil {
				t.Fatalf("credentialOptions() error = %v", err)
			}
			if len(opts) != tt.want {
				t.Fatalf("got %d options, want %d", len(opts), tt.want)
			}
		})
	}
}

// fakeSheets records the calls made against the values API.
type fakeSheets struct {
	mu      sync.Mutex
	calls   []string
	written [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","clearedRange":"Relatorio!A1:D100"}`))
	case r.Method == http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "bad input option", http.StatusBadRequest)
			return
		}
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.written = body.Values
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updatedRange":"Relatorio!A1:D4","updatedRows":4}`))
	default:
		http.NotFound(w, r)
	}
}

func TestExportWritesReport(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	exp, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1", SheetName: "Relatorio"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ref, err := exp.Export(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "Relatorio!A1:D4" {
		t.Errorf("unexpected ref %q", ref)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.calls) != 2 || !strings.HasPrefix(fake.calls[0], "POST") || !strings.HasPrefix(fake.calls[1], "PUT") {
		t.Fatalf("expected clear then update, got %v", fake.calls)
	}
	if !strings.Contains(fake.calls[1], "/v4/spreadsheets/sheet-1/values/Relatorio!A1:D4") {
		t.Errorf("unexpected update path %s", fake.calls[1])
	}
	if len(fake.written) != 4 || fake.written[1][0] != "2025-01" {
		t.Errorf("unexpected written values %v", fake.written)
	}
}

func TestExportPropagatesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	exp, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1", SheetName: "Relatorio"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := exp.Export(context.Background(), sampleReport()); err == nil || !strings.Contains(err.Error(), "clear") {
		t.Fatalf("expected clear error, got %v", err)
	}
}
