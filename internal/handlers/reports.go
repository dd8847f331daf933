package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/reports"
)

// ReportHandler exposes the derived reports. Date ranges come from ?from=
// and ?to= as YYYY-MM-DD.
type ReportHandler struct {
	reports *reports.Service
}

func NewReportHandler(reports *reports.Service) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Trailers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := engine.TrailerStatus(q.Get("status"))
	if status != "" && status != engine.TrailerAvailable && status != engine.TrailerInUse {
		writeError(w, apperr.E(apperr.Validation, "unknown trailer status %q", status))
		return
	}
	rows, err := h.reports.Trailers(r.Context(), q.Get("size"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportHandler) DriverPayments(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := h.reports.DriverPayments(r.Context(), engine.PaymentFilter{
		Range:    rng,
		DriverID: r.URL.Query().Get("driver"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportHandler) DriverDetail(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	detail, err := h.reports.DriverDetail(r.Context(), chi.URLParam(r, "driverID"), rng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ReportHandler) Profitability(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.reports.Profitability(r.Context(), rng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) DemurrageAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.reports.DemurrageAlerts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *ReportHandler) Fuel(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.MonthlyFuel(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *ReportHandler) WorkOrders(w http.ResponseWriter, r *http.Request) {
	groups, err := h.reports.WorkOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func dateRange(r *http.Request) (engine.DateRange, error) {
	q := r.URL.Query()
	return engine.ParseDateRange(q.Get("from"), q.Get("to"))
}
