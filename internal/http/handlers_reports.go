package http

import (
	"bytes"
	"encoding/csv"
	"net/http"

	"parishledger/internal/core"
	"parishledger/internal/export"
	applog "parishledger/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r.URL.Query(), "year")
	if err != nil {
		ServiceError(r, "dashboard", err).Write(w)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), year)
	if err != nil {
		ServiceError(r, "dashboard", err).Write(w)
		return
	}
	NewResponse().JSON(newDashboardView(d)).Write(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		ServiceError(r, "search", err).Write(w)
		return
	}
	txs, err := s.svc.Search(r.Context(), q)
	if err != nil {
		ServiceError(r, "search", err).Write(w)
		return
	}
	members, err := s.svc.Members(r.Context())
	if err != nil {
		ServiceError(r, "search", err).Write(w)
		return
	}
	NewResponse().JSON(newTransactionViews(txs, members)).Write(w)
}

// handleCategoryReport totals one transaction type per main category.
// type defaults to expense and to defaults to today.
func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := core.Expense
	if t := q.Get("type"); t != "" {
		typ = core.TxType(t)
	}
	from, err := queryDate(q, "from")
	if err != nil {
		ServiceError(r, "category_report", err).Write(w)
		return
	}
	to, err := queryDate(q, "to")
	if err != nil {
		ServiceError(r, "category_report", err).Write(w)
		return
	}
	if to.IsZero() {
		to = s.svc.Today()
	}
	amounts, err := s.svc.CategoryReport(r.Context(), typ, from, to)
	if err != nil {
		ServiceError(r, "category_report", err).Write(w)
		return
	}
	NewResponse().JSON(newAmountViews(amounts)).Write(w)
}

// handleExport returns the rows of a selection as JSON, or as a CSV
// download with format=csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		ServiceError(r, "export", err).Write(w)
		return
	}
	rows, err := s.svc.ExportRows(r.Context(), sel)
	if err != nil {
		ServiceError(r, "export", err).Write(w)
		return
	}
	if r.URL.Query().Get("format") != "csv" {
		NewResponse().JSON(newExportRowViews(rows)).Write(w)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(export.Table(rows)); err != nil {
		ServiceError(r, "export", err).Write(w)
		return
	}
	church, err := s.svc.ChurchName(r.Context())
	if err != nil {
		ServiceError(r, "export", err).Write(w)
		return
	}
	NewResponse().Attachment(church+" "+sel.Title()+".csv", "text/csv; charset=utf-8", buf.Bytes()).Write(w)
}

func (s *Server) handleExportWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.svc.AvailableWeeks(r.Context())
	if err != nil {
		ServiceError(r, "export_weeks", err).Write(w)
		return
	}
	if weeks == nil {
		weeks = []core.Date{}
	}
	NewResponse().JSON(weeks).Write(w)
}

// handleExportSheets pushes a selection to the configured spreadsheet.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.opts.Sheets == nil {
		ErrorResponse(http.StatusNotImplemented, applog.ErrorTypeConfiguration, "spreadsheet export is not configured").Write(w)
		return
	}
	var in selectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		ServiceError(r, "export_sheets", err).Write(w)
		return
	}
	sel, err := in.toSelection()
	if err != nil {
		ServiceError(r, "export_sheets", err).Write(w)
		return
	}
	rows, err := s.svc.ExportRows(r.Context(), sel)
	if err != nil {
		ServiceError(r, "export_sheets", err).Write(w)
		return
	}
	sheet := s.opts.Sheets.SheetTitle(sel.Title())
	if err := s.opts.Sheets.Write(r.Context(), sheet, rows); err != nil {
		applog.LogError(r.Context(), "Spreadsheet export failed", err, applog.ComponentExport, "export_sheets", applog.ErrorTypeNetwork)
		ErrorResponse(http.StatusBadGateway, applog.ErrorTypeNetwork, "spreadsheet export failed").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Exported to spreadsheet",
		applog.FieldPeriod, sel.Period.String(),
		applog.FieldSheetRange, sheet,
		applog.FieldCount, len(rows))
	NewResponse().JSON(struct {
		Sheet string `json:"sheet"`
		Rows  int    `json:"rows"`
	}{sheet, len(rows)}).Write(w)
}
