package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// TxRepository exposes transactional operations used by the service.
// The document insert, number claim and ledger increments all commit
// or roll back together.
type TxRepository interface {
	NextNumber(ctx context.Context, year int) (string, error)
	LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error)
	ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error)
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertLines(ctx context.Context, purchaseID int64, items []LineItem) error
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context) ([]Purchase, error)
}

// CatalogPort exposes master data lookups.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	GetGodown(ctx context.Context, id int64) (catalog.Godown, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts purchase documents.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// ItemInput is one requested purchase line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// RecordInput describes a purchase to post.
type RecordInput struct {
	Actor         policy.Subject
	Supplier      Supplier
	GodownID      int64
	Date          time.Time
	Items         []ItemInput
	PaymentStatus PaymentStatus
}

// Record validates and posts a purchase. Validation happens entirely
// before any ledger mutation; a failed purchase leaves no trace.
func (s *Service) Record(ctx context.Context, input RecordInput) (Purchase, error) {
	if !policy.Authorize(input.Actor, policy.ModulePurchases, policy.ActionCreate) {
		return Purchase{}, shared.ErrForbidden
	}
	if input.Supplier.Name == "" {
		return Purchase{}, fmt.Errorf("purchases: supplier name is required: %w", shared.ErrValidation)
	}
	if len(input.Items) == 0 {
		return Purchase{}, fmt.Errorf("purchases: at least one item is required: %w", shared.ErrValidation)
	}

	godown, err := s.catalog.GetGodown(ctx, input.GodownID)
	if err != nil {
		return Purchase{}, err
	}
	if !godown.IsActive {
		return Purchase{}, fmt.Errorf("purchases: godown %s is inactive: %w", godown.Code, shared.ErrValidation)
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	status := input.PaymentStatus
	if status == "" {
		status = PaymentStatusPaid
	}

	doc := Purchase{
		Supplier:      input.Supplier,
		GodownID:      input.GodownID,
		Date:          date,
		PaymentStatus: status,
		CreatedBy:     input.Actor.UserID,
	}
	var totalGst float64
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return Purchase{}, fmt.Errorf("purchases: item quantity must be positive: %w", shared.ErrValidation)
		}
		if item.UnitPrice < 0 {
			return Purchase{}, fmt.Errorf("purchases: item price must be non-negative: %w", shared.ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return Purchase{}, err
		}
		gstAmount, lineTotal := shared.LineAmounts(item.Quantity, item.UnitPrice, product.GSTPercent)
		doc.Items = append(doc.Items, LineItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			GSTPercent: product.GSTPercent,
			GSTAmount:  gstAmount,
			LineTotal:  lineTotal,
		})
		doc.Subtotal += float64(item.Quantity) * item.UnitPrice
		totalGst += gstAmount
	}
	doc.Subtotal = shared.RoundMoney(doc.Subtotal)
	doc.CGST, doc.SGST = shared.SplitGST(totalGst)
	doc.TotalAmount = shared.RoundMoney(doc.Subtotal + totalGst)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, date.Year())
		if err != nil {
			return err
		}
		doc.PurchaseNumber = number

		keys := balanceKeys(doc.GodownID, doc.Items)
		if _, err := tx.LockBalances(ctx, keys); err != nil {
			return err
		}
		id, err := tx.InsertPurchase(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		if err := tx.InsertLines(ctx, id, doc.Items); err != nil {
			return err
		}
		for _, item := range doc.Items {
			key := ledger.BalanceKey{ProductID: item.ProductID, GodownID: doc.GodownID}
			if _, err := tx.ApplyDelta(ctx, key, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.Actor.UserID,
			Action:   "purchase:record",
			Entity:   "purchase",
			EntityID: doc.PurchaseNumber,
			Meta: map[string]any{
				"godown_id":    doc.GodownID,
				"total_amount": doc.TotalAmount,
				"lines":        len(doc.Items),
			},
		})
	}
	return doc, nil
}

// Get fetches one purchase with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchases newest first.
func (s *Service) List(ctx context.Context) ([]Purchase, error) {
	return s.repo.List(ctx)
}

func balanceKeys(godownID int64, items []LineItem) []ledger.BalanceKey {
	seen := make(map[ledger.BalanceKey]struct{}, len(items))
	keys := make([]ledger.BalanceKey, 0, len(items))
	for _, item := range items {
		key := ledger.BalanceKey{ProductID: item.ProductID, GodownID: godownID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
