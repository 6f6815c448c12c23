package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/sequence"
	"github.com/stockkeep/stockkeep/internal/shared"
)

type memoryPurchaseRepo struct {
	balances  map[ledger.BalanceKey]int64
	purchases map[int64]Purchase
	lines     map[int64][]LineItem
	seq       int64
	nextID    int64
}

func newMemoryPurchaseRepo() *memoryPurchaseRepo {
	return &memoryPurchaseRepo{
		balances:  make(map[ledger.BalanceKey]int64),
		purchases: make(map[int64]Purchase),
		lines:     make(map[int64][]LineItem),
	}
}

func (r *memoryPurchaseRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
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

func (r *memoryPurchaseRepo) NextNumber(ctx context.Context, year int) (string, error) {
	r.seq++
	return sequence.Format(sequence.DocTypePurchase, year, r.seq), nil
}

func (r *memoryPurchaseRepo) LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error) {
	out := make(map[ledger.BalanceKey]int64, len(keys))
	for _, key := range keys {
		out[key] = r.balances[key]
	}
	return out, nil
}

func (r *memoryPurchaseRepo) ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error) {
	r.balances[key] += delta
	return ledger.Balance{ProductID: key.ProductID, GodownID: key.GodownID, Quantity: r.balances[key]}, nil
}

func (r *memoryPurchaseRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.purchases[p.ID] = p
	return p.ID, nil
}

func (r *memoryPurchaseRepo) InsertLines(ctx context.Context, purchaseID int64, items []LineItem) error {
	r.lines[purchaseID] = items
	return nil
}

func (r *memoryPurchaseRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, shared.ErrNotFound
	}
	p.Items = r.lines[id]
	return p, nil
}

func (r *memoryPurchaseRepo) List(ctx context.Context) ([]Purchase, error) {
	out := make([]Purchase, 0, len(r.purchases))
	for id, p := range r.purchases {
		p.Items = r.lines[id]
		out = append(out, p)
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

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func buyer() policy.Subject {
	return policy.Subject{
		UserID: 7,
		Role:   policy.RoleSupportStaff,
		Grants: policy.Grants{
			{Module: policy.ModulePurchases, Action: policy.ActionCreate}: {},
		},
	}
}

func newTestService() (*Service, *memoryPurchaseRepo, *recordingAudit) {
	repo := newMemoryPurchaseRepo()
	cat := &stubCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, SKU: "CEM-50", GSTPercent: 18},
		},
		godowns: map[int64]catalog.Godown{
			10: {ID: 10, Code: "MAIN", IsActive: true},
			30: {ID: 30, Code: "OLD", IsActive: false},
		},
	}
	audit := &recordingAudit{}
	return NewService(repo, cat, audit), repo, audit
}

func TestRecordIncrementsStock(t *testing.T) {
	svc, repo, audit := newTestService()
	key := ledger.BalanceKey{ProductID: 1, GodownID: 10}
	repo.balances[key] = 20

	purchase, err := svc.Record(context.Background(), RecordInput{
		Actor:    buyer(),
		Supplier: Supplier{Name: "Ambuja Distributors"},
		GodownID: 10,
		Date:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Items:    []ItemInput{{ProductID: 1, Quantity: 100, UnitPrice: 350}},
	})
	require.NoError(t, err)

	require.Equal(t, "PUR-2025-001", purchase.PurchaseNumber)
	require.Equal(t, 35000.0, purchase.Subtotal)
	require.Equal(t, 3150.0, purchase.CGST)
	require.Equal(t, 3150.0, purchase.SGST)
	require.Equal(t, 41300.0, purchase.TotalAmount)
	require.Equal(t, PaymentStatusPaid, purchase.PaymentStatus)

	require.Equal(t, int64(120), repo.balances[key])
	require.Len(t, audit.logs, 1)
	require.Equal(t, "purchase:record", audit.logs[0].Action)
	require.Equal(t, purchase.PurchaseNumber, audit.logs[0].EntityID)
}

func TestRecordKeepsPendingStatus(t *testing.T) {
	svc, _, _ := newTestService()

	purchase, err := svc.Record(context.Background(), RecordInput{
		Actor:         buyer(),
		Supplier:      Supplier{Name: "Ambuja Distributors"},
		GodownID:      10,
		Items:         []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 350}},
		PaymentStatus: PaymentStatusPending,
	})
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPending, purchase.PaymentStatus)
}

func TestRecordSequencesWithinYear(t *testing.T) {
	svc, _, _ := newTestService()

	for i, want := range []string{"PUR-2025-001", "PUR-2025-002", "PUR-2025-003"} {
		purchase, err := svc.Record(context.Background(), RecordInput{
			Actor:    buyer(),
			Supplier: Supplier{Name: "Ambuja Distributors"},
			GodownID: 10,
			Date:     time.Date(2025, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Items:    []ItemInput{{ProductID: 1, Quantity: 5, UnitPrice: 350}},
		})
		require.NoError(t, err)
		require.Equal(t, want, purchase.PurchaseNumber)
	}
}

func TestRecordValidation(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    buyer(),
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "missing supplier name")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    buyer(),
		Supplier: Supplier{Name: "X"},
		GodownID: 10,
	})
	require.ErrorIs(t, err, shared.ErrValidation, "no items")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    buyer(),
		Supplier: Supplier{Name: "X"},
		GodownID: 30,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "inactive godown")

	_, err = svc.Record(context.Background(), RecordInput{
		Actor:    buyer(),
		Supplier: Supplier{Name: "X"},
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: -2, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrValidation, "negative quantity")

	// Nothing hit the ledger or the document store.
	require.Empty(t, repo.purchases)
	require.Empty(t, repo.balances)
}

func TestRecordRequiresPermission(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Record(context.Background(), RecordInput{
		Actor:    policy.Subject{UserID: 9, Role: policy.RoleSupportStaff},
		Supplier: Supplier{Name: "X"},
		GodownID: 10,
		Items:    []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}
