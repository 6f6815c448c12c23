package users

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

// Handler manages user administration endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleUsers, policy.ActionView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleUsers, policy.ActionCreate))
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.policy.Require(policy.ModuleUsers, policy.ActionEdit))
		r.Put("/{id}", h.updateUser)
	})
}

type userRequest struct {
	Email    string              `json:"email" validate:"required,email"`
	Name     string              `json:"name" validate:"required"`
	Password string              `json:"password"`
	Role     string              `json:"role" validate:"required"`
	Grants   map[string][]string `json:"grants"`
	IsActive bool                `json:"isActive"`
}

type userResponse struct {
	ID        int64               `json:"id"`
	Email     string              `json:"email"`
	Name      string              `json:"name"`
	Role      string              `json:"role"`
	Grants    map[string][]string `json:"grants"`
	IsActive  bool                `json:"isActive"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func toResponse(user User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		Grants:    user.Grants.ToMap(),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	list, err := h.service.ListUsers(r.Context(), actor)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]userResponse, 0, len(list))
	for _, user := range list {
		responses = append(responses, toResponse(user))
	}
	httpx.JSON(w, http.StatusOK, responses)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be an integer")
		return
	}
	user, err := h.service.GetUser(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	var req userRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grants, err := policy.GrantsFromMap(req.Grants)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateUserInput{
		Actor:    actor,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     policy.Role(req.Role),
		Grants:   grants,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := policy.SubjectFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be an integer")
		return
	}
	var req userRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grants, err := policy.GrantsFromMap(req.Grants)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.service.UpdateUser(r.Context(), UpdateUserInput{
		Actor:    actor,
		ID:       id,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     policy.Role(req.Role),
		Grants:   grants,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}
