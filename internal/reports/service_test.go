package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

type stubReportsRepo struct {
	lowStock   []LowStockItem
	summary    Summary
	summaryErr error
	lastFilter SalesFilter
}

func (r *stubReportsRepo) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return r.lowStock, nil
}

func (r *stubReportsRepo) SalesByGodown(ctx context.Context) ([]GodownSales, error) {
	return []GodownSales{{GodownID: 10, GodownName: "Main"}}, nil
}

func (r *stubReportsRepo) SalesByProduct(ctx context.Context) ([]ProductSales, error) {
	return []ProductSales{{ProductID: 1, SKU: "CEM-50"}}, nil
}

func (r *stubReportsRepo) FilteredSales(ctx context.Context, filter SalesFilter) ([]SaleRow, SalesTotals, error) {
	r.lastFilter = filter
	return []SaleRow{}, SalesTotals{}, nil
}

func (r *stubReportsRepo) Summary(ctx context.Context) (Summary, error) {
	return r.summary, r.summaryErr
}

func viewer() policy.Subject {
	return policy.Subject{
		UserID: 2,
		Role:   policy.RoleSupportStaff,
		Grants: policy.Grants{
			{Module: policy.ModuleReports, Action: policy.ActionView}: {},
		},
	}
}

func TestReportsRequireViewPermission(t *testing.T) {
	svc := NewService(&stubReportsRepo{})
	nobody := policy.Subject{UserID: 4, Role: policy.RoleSupportStaff}
	ctx := context.Background()

	_, err := svc.LowStock(ctx, nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.SalesByGodown(ctx, nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.SalesByProduct(ctx, nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, _, err = svc.FilteredSales(ctx, nobody, SalesFilter{})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.DashboardSummary(ctx, nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Overview(ctx, nobody)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestFilteredSalesPassesFilterThrough(t *testing.T) {
	repo := &stubReportsRepo{}
	svc := NewService(repo)

	filter := SalesFilter{GodownID: 10, ProductID: 1}
	rows, totals, err := svc.FilteredSales(context.Background(), viewer(), filter)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Zero(t, totals.TotalAmount)
	require.Equal(t, filter, repo.lastFilter)
}

func TestOverviewAssemblesSummaryAndLowStock(t *testing.T) {
	repo := &stubReportsRepo{
		lowStock: []LowStockItem{{ProductID: 1, SKU: "CEM-50", TotalStock: 3, Threshold: 10}},
		summary:  Summary{ProductCount: 3, GodownCount: 2, LowStockCount: 1},
	}
	svc := NewService(repo)

	overview, err := svc.Overview(context.Background(), viewer())
	require.NoError(t, err)
	require.Equal(t, repo.summary, overview.Summary)
	require.Len(t, overview.LowStock, 1)
	require.Equal(t, "CEM-50", overview.LowStock[0].SKU)
}

func TestOverviewPropagatesQueryError(t *testing.T) {
	repo := &stubReportsRepo{summaryErr: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.Overview(context.Background(), viewer())
	require.ErrorContains(t, err, "connection reset")
}
