package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockkeep/stockkeep/internal/platform/httpx"
	"github.com/stockkeep/stockkeep/internal/policy"
)

// Handler exposes the read-only report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	policy  policy.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, policyMW policy.Middleware) *Handler {
	return &Handler{logger: logger, service: service, policy: policyMW}
}

// MountRoutes registers report routes under /reports.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleReports, policy.ActionView))
		r.Get("/low-stock", h.lowStock)
		r.Get("/sales-by-godown", h.salesByGodown)
		r.Get("/sales-by-product", h.salesByProduct)
		r.Get("/sales", h.filteredSales)
		r.Get("/summary", h.summary)
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	items, err := h.service.LowStock(r.Context(), actor)
	if err != nil {
		h.logger.Error("low stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) salesByGodown(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	rows, err := h.service.SalesByGodown(r.Context(), actor)
	if err != nil {
		h.logger.Error("sales by godown report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) salesByProduct(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	rows, err := h.service.SalesByProduct(r.Context(), actor)
	if err != nil {
		h.logger.Error("sales by product report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

type filteredSalesResponse struct {
	Sales  []SaleRow   `json:"sales"`
	Totals SalesTotals `json:"totals"`
}

func (h *Handler) filteredSales(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", err.Error())
		return
	}
	rows, totals, err := h.service.FilteredSales(r.Context(), actor, filter)
	if err != nil {
		h.logger.Error("filtered sales report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filteredSalesResponse{Sales: rows, Totals: totals})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	overview, err := h.service.Overview(r.Context(), actor)
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func parseFilter(r *http.Request) (SalesFilter, error) {
	var filter SalesFilter
	query := r.URL.Query()
	if raw := query.Get("godownId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SalesFilter{}, err
		}
		filter.GodownID = id
	}
	if raw := query.Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SalesFilter{}, err
		}
		filter.ProductID = id
	}
	if raw := query.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return SalesFilter{}, err
		}
		filter.From = t
	}
	if raw := query.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return SalesFilter{}, err
		}
		filter.To = t
	}
	return filter, nil
}
