package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// Service coordinates catalog master data operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateProductInput describes a new product.
type CreateProductInput struct {
	Actor             policy.Subject
	SKU               string
	Name              string
	Category          string
	Brand             string
	PurchasePrice     float64
	SellingPrice      float64
	GSTPercent        float64
	HSNCode           string
	LowStockThreshold int64
}

// CreateGodownInput describes a new godown.
type CreateGodownInput struct {
	Actor    policy.Subject
	Code     string
	Name     string
	Address  string
	City     string
	State    string
	Pincode  string
	Manager  string
	Contact  string
	IsActive bool
}

// CreateProduct validates and persists a product.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	if !policy.Authorize(input.Actor, policy.ModuleInventory, policy.ActionCreate) {
		return Product{}, shared.ErrForbidden
	}
	p := Product{
		SKU:               strings.TrimSpace(input.SKU),
		Name:              strings.TrimSpace(input.Name),
		Category:          strings.TrimSpace(input.Category),
		Brand:             strings.TrimSpace(input.Brand),
		PurchasePrice:     input.PurchasePrice,
		SellingPrice:      input.SellingPrice,
		GSTPercent:        input.GSTPercent,
		HSNCode:           strings.TrimSpace(input.HSNCode),
		LowStockThreshold: input.LowStockThreshold,
	}
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}
	return s.repo.InsertProduct(ctx, p)
}

// CreateGodown validates and persists a godown.
func (s *Service) CreateGodown(ctx context.Context, input CreateGodownInput) (Godown, error) {
	if !policy.Authorize(input.Actor, policy.ModuleGodowns, policy.ActionCreate) {
		return Godown{}, shared.ErrForbidden
	}
	g := Godown{
		Code:     strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:     strings.TrimSpace(input.Name),
		Address:  strings.TrimSpace(input.Address),
		City:     strings.TrimSpace(input.City),
		State:    strings.TrimSpace(input.State),
		Pincode:  strings.TrimSpace(input.Pincode),
		Manager:  strings.TrimSpace(input.Manager),
		Contact:  strings.TrimSpace(input.Contact),
		IsActive: input.IsActive,
	}
	if err := validateGodown(g); err != nil {
		return Godown{}, err
	}
	return s.repo.InsertGodown(ctx, g)
}

// GetProduct fetches a product by ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists all products ordered by name.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetGodown fetches a godown by ID.
func (s *Service) GetGodown(ctx context.Context, id int64) (Godown, error) {
	return s.repo.GetGodown(ctx, id)
}

// ListGodowns lists all godowns ordered by code.
func (s *Service) ListGodowns(ctx context.Context) ([]Godown, error) {
	return s.repo.ListGodowns(ctx)
}

func validateProduct(p Product) error {
	switch {
	case p.SKU == "":
		return fmt.Errorf("catalog: sku is required: %w", shared.ErrValidation)
	case p.Name == "":
		return fmt.Errorf("catalog: product name is required: %w", shared.ErrValidation)
	case p.PurchasePrice < 0 || p.SellingPrice < 0:
		return fmt.Errorf("catalog: prices must be non-negative: %w", shared.ErrValidation)
	case p.GSTPercent < 0 || p.GSTPercent > 100:
		return fmt.Errorf("catalog: gst percent must be within 0-100: %w", shared.ErrValidation)
	case p.LowStockThreshold < 0:
		return fmt.Errorf("catalog: low stock threshold must be non-negative: %w", shared.ErrValidation)
	}
	return nil
}

func validateGodown(g Godown) error {
	switch {
	case g.Code == "":
		return fmt.Errorf("catalog: godown code is required: %w", shared.ErrValidation)
	case g.Name == "":
		return fmt.Errorf("catalog: godown name is required: %w", shared.ErrValidation)
	}
	return nil
}
