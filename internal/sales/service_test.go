package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/sequence"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// memorySalesRepo serializes WithTx callers with a mutex, standing in
// for the row locks that linearize concurrent postings in Postgres.
type memorySalesRepo struct {
	mu       sync.Mutex
	balances map[ledger.BalanceKey]int64
	sales    map[int64]Sale
	lines    map[int64][]LineItem
	seq      int64
	nextID   int64
}

func newMemorySalesRepo() *memorySalesRepo {
	return &memorySalesRepo{
		balances: make(map[ledger.BalanceKey]int64),
		sales:    make(map[int64]Sale),
		lines:    make(map[int64][]LineItem),
	}
}

func (r *memorySalesRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	balances := make(map[ledger.BalanceKey]int64, len(r.balances))
	for k, v := range r.balances {
		balances[k] = v
	}
	seq := r.seq
	if err := fn(ctx, r); err != nil {
		r.balances = balances
		r.seq = seq
		return err
	}
	return nil
}

func (r *memorySalesRepo) NextNumber(ctx context.Context, year int) (string, error) {
	r.seq++
	return sequence.Format(sequence.DocTypeSale, year, r.seq), nil
}

func (r *memorySalesRepo) LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error) {
	out := make(map[ledger.BalanceKey]int64, len(keys))
	for _, key := range keys {
		out[key] = r.balances[key]
	}
	return out, nil
}

func (r *memorySalesRepo) ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error) {
	next := r.balances[key] + delta
	if next < 0 {
		return ledger.Balance{}, &ledger.InsufficientStockError{
			ProductID: key.ProductID,
			GodownID:  key.GodownID,
			Requested: -delta,
			Available: r.balances[key],
		}
	}
	r.balances[key] = next
	return ledger.Balance{ProductID: key.ProductID, GodownID: key.GodownID, Quantity: next}, nil
}

func (r *memorySalesRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	r.sales[s.ID] = s
	return s.ID, nil
}

func (r *memorySalesRepo) InsertLines(ctx context.Context, saleID int64, items []LineItem) error {
	r.lines[saleID] = items
	return nil
}

func (r *memorySalesRepo) Get(ctx context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	s.Items = r.lines[id]
	return s, nil
}

func (r *memorySalesRepo) List(ctx context.Context) ([]Sale, error) {
	out := make([]Sale, 0, len(r.sales))
	for id, s := range r.sales {
		s.Items = r.lines[id]
		out = append(out, s)
	}
	return out, nil
}

type stubCatalog struct {
	products map[int64]catalog.Product
	godowns  map[int64]catalog.Godown
}

func (s *stubCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) GetGodown(ctx context.Context, id int64) (catalog.Godown, error) {
	g, ok := s.godowns[id]
	if !ok {
		return catalog.Godown{}, shared.ErrNotFound
	}
	return g, nil
}

func seller() policy.Subject {
	return policy.Subject{
		UserID: 3,
		Role:   policy.RoleSupportStaff,
		Grants: policy.Grants{
			{Module: policy.ModuleSales, Action: policy.ActionCreate}: {},
		},
	}
}

func newTestService() (*Service, *memorySalesRepo) {
	repo := newMemorySalesRepo()
	cat := &stubCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, SKU: "CEM-50", GSTPercent: 18},
			2: {ID: 2, SKU: "TMT-12", GSTPercent: 5},
		},
		godowns: map[int64]catalog.Godown{
			10: {ID: 10, Code: "MAIN", IsActive: true},
			30: {ID: 30, Code: "OLD", IsActive: false},
		},
	}
	return NewService(repo, cat, nil), repo
}

func TestRecordComputesGSTTotals(t *testing.T) {
	svc, repo := newTestService()
	key := ledger.BalanceKey{ProductID: 1, GodownID: 10}
	repo.balances[key] = 80

	sale, err := svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "Sharma Traders"},
		GodownID: 10,
		Date:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Items:    []ItemInput{{ProductID: 1, Quantity: 50, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.Equal(t, "INV-2024-001", sale.InvoiceNumber)
	require.Equal(t, 5000.0, sale.Subtotal)
	require.Equal(t, 450.0, sale.CGST)
	require.Equal(t, 450.0, sale.SGST)
	require.Equal(t, 5900.0, sale.TotalAmount)
	require.Equal(t, PaymentStatusPaid, sale.PaymentStatus)
	require.Equal(t, sale.TotalAmount, sale.PaidAmount)

	require.Equal(t, int64(30), repo.balances[key])
	require.Len(t, repo.sales, 1)
}

func TestRecordRejectsOversell(t *testing.T) {
	svc, repo := newTestService()
	key := ledger.BalanceKey{ProductID: 1, GodownID: 10}
	repo.balances[key] = 50

	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "Sharma Traders"},
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 60, UnitPrice: 100}},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(60), insufficient.Requested)
	require.Equal(t, int64(50), insufficient.Available)

	// Whole invoice aborted: no document, no decrement, no number burned.
	require.Empty(t, repo.sales)
	require.Equal(t, int64(50), repo.balances[key])
	require.Equal(t, int64(0), repo.seq)
}

func TestConcurrentSalesSerializeOnStock(t *testing.T) {
	svc, repo := newTestService()
	key := ledger.BalanceKey{ProductID: 1, GodownID: 10}
	repo.balances[key] = 50

	// Two 30-unit sales race for 50 units. Availability is re-checked
	// under the same exclusion that covers the decrement, so exactly one
	// can win regardless of interleaving.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(context.Background(), RecordInput{
				Actor:    seller(),
				Customer: Customer{Name: "Sharma Traders"},
				GodownID: 10,
				Items:    []ItemInput{{ProductID: 1, Quantity: 30, UnitPrice: 100}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		lost++
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)
	require.Equal(t, int64(20), repo.balances[key])
	require.Len(t, repo.sales, 1)
	require.Equal(t, int64(1), repo.seq)
}

func TestRecordAggregatesDuplicateProductLines(t *testing.T) {
	svc, repo := newTestService()
	key := ledger.BalanceKey{ProductID: 1, GodownID: 10}
	repo.balances[key] = 50

	// 30 + 30 across two lines exceeds the 50 available even though
	// each line alone would pass.
	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "Sharma Traders"},
		GodownID: 10,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 30, UnitPrice: 100},
			{ProductID: 1, Quantity: 30, UnitPrice: 95},
		},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(50), repo.balances[key])
}

func TestRecordMultipleProducts(t *testing.T) {
	svc, repo := newTestService()
	repo.balances[ledger.BalanceKey{ProductID: 1, GodownID: 10}] = 10
	repo.balances[ledger.BalanceKey{ProductID: 2, GodownID: 10}] = 10

	sale, err := svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "Patil Hardware"},
		GodownID: 10,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2, UnitPrice: 100}, // 200 + 36 gst
			{ProductID: 2, Quantity: 4, UnitPrice: 50},  // 200 + 10 gst
		},
	})
	require.NoError(t, err)
	require.Equal(t, 400.0, sale.Subtotal)
	require.Equal(t, 23.0, sale.CGST)
	require.Equal(t, 23.0, sale.SGST)
	require.Equal(t, 446.0, sale.TotalAmount)
	require.Equal(t, int64(8), repo.balances[ledger.BalanceKey{ProductID: 1, GodownID: 10}])
	require.Equal(t, int64(6), repo.balances[ledger.BalanceKey{ProductID: 2, GodownID: 10}])
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "missing customer name")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "X"},
		GodownID: 10,
	})
	require.ErrorIs(t, err, shared.ErrValidation, "no items")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "X"},
		GodownID: 30,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "inactive godown")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    seller(),
		Customer: Customer{Name: "X"},
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 0, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "zero quantity")
}

func TestRecordRequiresPermission(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    policy.Subject{UserID: 4, Role: policy.RoleSupportStaff},
		Customer: Customer{Name: "X"},
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}
