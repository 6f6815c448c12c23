package reports

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// RepositoryPort abstracts the read-only queries behind the reports.
type RepositoryPort interface {
	LowStock(ctx context.Context) ([]LowStockItem, error)
	SalesByGodown(ctx context.Context) ([]GodownSales, error)
	SalesByProduct(ctx context.Context) ([]ProductSales, error)
	FilteredSales(ctx context.Context, filter SalesFilter) ([]SaleRow, SalesTotals, error)
	Summary(ctx context.Context) (Summary, error)
}

// Service derives advisory, read-only views over ledger and sale
// history. It never mutates state and never raises business errors;
// absent data renders as empty slices and zero aggregates.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// LowStock lists products whose total stock across all godowns is at
// or below their low stock threshold.
func (s *Service) LowStock(ctx context.Context, actor policy.Subject) ([]LowStockItem, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return nil, shared.ErrForbidden
	}
	return s.repo.LowStock(ctx)
}

// SalesByGodown groups sale history by godown.
func (s *Service) SalesByGodown(ctx context.Context, actor policy.Subject) ([]GodownSales, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return nil, shared.ErrForbidden
	}
	return s.repo.SalesByGodown(ctx)
}

// SalesByProduct groups sold line items by product.
func (s *Service) SalesByProduct(ctx context.Context, actor policy.Subject) ([]ProductSales, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return nil, shared.ErrForbidden
	}
	return s.repo.SalesByProduct(ctx)
}

// FilteredSales applies the conjunctive filter and returns matching
// invoices with aggregate totals.
func (s *Service) FilteredSales(ctx context.Context, actor policy.Subject, filter SalesFilter) ([]SaleRow, SalesTotals, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return nil, SalesTotals{}, shared.ErrForbidden
	}
	return s.repo.FilteredSales(ctx, filter)
}

// DashboardSummary returns entity counts and money totals.
func (s *Service) DashboardSummary(ctx context.Context, actor policy.Subject) (Summary, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return Summary{}, shared.ErrForbidden
	}
	return s.repo.Summary(ctx)
}

// Overview assembles the dashboard payload. The two queries are
// independent, so they run concurrently.
func (s *Service) Overview(ctx context.Context, actor policy.Subject) (Overview, error) {
	if !policy.Authorize(actor, policy.ModuleReports, policy.ActionView) {
		return Overview{}, shared.ErrForbidden
	}
	var overview Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.Summary(ctx)
		if err != nil {
			return err
		}
		overview.Summary = summary
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.LowStock(ctx)
		if err != nil {
			return err
		}
		overview.LowStock = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}
