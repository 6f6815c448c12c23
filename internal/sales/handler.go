package sales

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockkeep/stockkeep/internal/platform/httpx"
	"github.com/stockkeep/stockkeep/internal/policy"
)

// Handler exposes sale invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	policy    policy.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, policyMW policy.Middleware) *Handler {
	return &Handler{logger: logger, service: service, policy: policyMW, validator: validator.New()}
}

// MountRoutes registers sale routes under /sales.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleSales, policy.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleSales, policy.ActionCreate))
		r.Post("/", h.record)
	})
}

type customerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	GSTIN string `json:"gstin"`
}

type itemRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

type recordRequest struct {
	Customer customerRequest `json:"customer" validate:"required"`
	GodownID int64           `json:"godownId" validate:"required,gt=0"`
	Date     string          `json:"date"`
	Items    []itemRequest   `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	items := make([]ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	sale, err := h.service.Record(r.Context(), RecordInput{
		Actor: actor,
		Customer: Customer{
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
			GSTIN: req.Customer.GSTIN,
		},
		GodownID: req.GodownID,
		Date:     date,
		Items:    items,
	})
	if err != nil {
		h.logger.Warn("record sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "sale id must be an integer")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}
