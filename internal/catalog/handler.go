package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockkeep/stockkeep/internal/platform/httpx"
	"github.com/stockkeep/stockkeep/internal/policy"
)

// Handler manages product and godown master data endpoints.
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

// MountProductRoutes registers product routes under /products.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleInventory, policy.ActionView))
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleInventory, policy.ActionCreate))
		r.Post("/", h.createProduct)
	})
}

// MountGodownRoutes registers godown routes under /godowns.
func (h *Handler) MountGodownRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleGodowns, policy.ActionView))
		r.Get("/", h.listGodowns)
		r.Get("/{id}", h.getGodown)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleGodowns, policy.ActionCreate))
		r.Post("/", h.createGodown)
	})
}

type productRequest struct {
	SKU               string  `json:"sku" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Category          string  `json:"category"`
	Brand             string  `json:"brand"`
	PurchasePrice     float64 `json:"purchasePrice" validate:"gte=0"`
	SellingPrice      float64 `json:"sellingPrice" validate:"gte=0"`
	GSTPercent        float64 `json:"gstPercent" validate:"gte=0,lte=100"`
	HSNCode           string  `json:"hsnCode"`
	LowStockThreshold int64   `json:"lowStockThreshold" validate:"gte=0"`
}

type godownRequest struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Manager  string `json:"manager"`
	Contact  string `json:"contact"`
	IsActive bool   `json:"isActive"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.CreateProduct(r.Context(), CreateProductInput{
		Actor:             actor,
		SKU:               req.SKU,
		Name:              req.Name,
		Category:          req.Category,
		Brand:             req.Brand,
		PurchasePrice:     req.PurchasePrice,
		SellingPrice:      req.SellingPrice,
		GSTPercent:        req.GSTPercent,
		HSNCode:           req.HSNCode,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be an integer")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) createGodown(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req godownRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	godown, err := h.service.CreateGodown(r.Context(), CreateGodownInput{
		Actor:    actor,
		Code:     req.Code,
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		Pincode:  req.Pincode,
		Manager:  req.Manager,
		Contact:  req.Contact,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, godown)
}

func (h *Handler) getGodown(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "godown id must be an integer")
		return
	}
	godown, err := h.service.GetGodown(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, godown)
}

func (h *Handler) listGodowns(w http.ResponseWriter, r *http.Request) {
	godowns, err := h.service.ListGodowns(r.Context())
	if err != nil {
		h.logger.Error("list godowns", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, godowns)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
