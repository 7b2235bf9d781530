// Package google exports the monthly report to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/ports"
)

// Config selects the target spreadsheet and the service account used to
// reach it. CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger
}

var _ ports.ReportExporter = (*Exporter)(nil)

// New creates an exporter authenticated with the configured service account.
// Extra options are appended after the credentials, which lets tests point
// the client at a local endpoint.
func New(ctx context.Context, cfg Config, logger *applog.Logger, extra ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	if logger == nil {
		logger = applog.Nop()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	opts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)

	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}, nil
}

func credentialOptions(cfg Config) ([]goption.ClientOption, error) {
	scopes := goption.WithScopes(gsheet.SpreadsheetsScope)
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []goption.ClientOption{goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)), scopes}, nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{goption.WithCredentialsJSON(data), scopes}, nil
	}
	return nil, nil
}

// Export replaces the sheet contents with the report and returns the
// written range.
func (e *Exporter) Export(ctx context.Context, r core.Report) (string, error) {
	rows := ReportRows(r)
	clearRange := fmt.Sprintf("%s!A:D", e.sheetName)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rng := fmt.Sprintf("%s!A1:D%d", e.sheetName, len(rows))
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	ref := rng
	if resp != nil && resp.UpdatedRange != "" {
		ref = resp.UpdatedRange
	}

	e.logger.InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldSheetsRef, ref,
		applog.FieldCount, len(r.Months))
	return ref, nil
}

// ReportRows lays the report out as a header, one row per month and a
// closing total row. Amounts are plain numbers so the sheet can format them.
func ReportRows(r core.Report) [][]any {
	rows := make([][]any, 0, len(r.Months)+2)
	rows = append(rows, []any{"Mês", "Receitas", "Despesas", "Saldo"})
	for _, m := range r.Months {
		rows = append(rows, []any{
			fmt.Sprintf("%04d-%02d", m.Year, m.Month),
			m.Revenue.InexactFloat64(),
			m.Expense.InexactFloat64(),
			m.Balance().InexactFloat64(),
		})
	}
	rows = append(rows, []any{
		"Total",
		r.TotalRevenue.InexactFloat64(),
		r.TotalExpense.InexactFloat64(),
		r.Balance().InexactFloat64(),
	})
	return rows
}
