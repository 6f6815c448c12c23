package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockkeep/stockkeep/internal/platform/httpx"
	"github.com/stockkeep/stockkeep/internal/policy"
)

// Handler exposes stock balance reads and stock movement endpoints.
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

// MountRoutes registers stock routes under /stock.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleInventory, policy.ActionView))
		r.Get("/balance", h.getBalance)
		r.Get("/godown/{id}", h.GodownStock)
		r.Get("/product/{id}", h.ProductStock)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleInventory, policy.ActionEdit))
		r.Post("/transfer", h.transfer)
		r.Post("/adjustments", h.adjust)
	})
}

type transferRequest struct {
	ProductID    int64 `json:"productId" validate:"required,gt=0"`
	FromGodownID int64 `json:"fromGodownId" validate:"required,gt=0"`
	ToGodownID   int64 `json:"toGodownId" validate:"required,gt=0"`
	Quantity     int64 `json:"quantity" validate:"required,gt=0"`
}

type adjustmentRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	GodownID  int64  `json:"godownId" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Note      string `json:"note"`
}

type transferResponse struct {
	From Balance `json:"from"`
	To   Balance `json:"to"`
}

type balanceResponse struct {
	ProductID int64 `json:"productId"`
	GodownID  int64 `json:"godownId"`
	Quantity  int64 `json:"quantity"`
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	productID, err1 := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	godownID, err2 := strconv.ParseInt(r.URL.Query().Get("godownId"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "productId and godownId must be integers")
		return
	}
	quantity, err := h.service.GetBalance(r.Context(), productID, godownID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{ProductID: productID, GodownID: godownID, Quantity: quantity})
}

// GodownStock lists stock held at one godown. Also mounted at
// /reports/godown-stock/{id}.
func (h *Handler) GodownStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "godown id must be an integer")
		return
	}
	stock, err := h.service.ListByGodown(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stock)
}

// ProductStock lists one product's stock across godowns. Also mounted
// at /products/{id}/stock.
func (h *Handler) ProductStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be an integer")
		return
	}
	stock, err := h.service.ListByProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stock)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Transfer(r.Context(), TransferInput{
		Actor:        actor,
		ProductID:    req.ProductID,
		FromGodownID: req.FromGodownID,
		ToGodownID:   req.ToGodownID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		h.logger.Warn("stock transfer failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transferResponse{From: result.From, To: result.To})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	balance, err := h.service.Adjust(r.Context(), AdjustmentInput{
		Actor:     actor,
		ProductID: req.ProductID,
		GodownID:  req.GodownID,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}
