package sales

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
type TxRepository interface {
	NextNumber(ctx context.Context, year int) (string, error)
	LockBalances(ctx context.Context, keys []ledger.BalanceKey) (map[ledger.BalanceKey]int64, error)
	ApplyDelta(ctx context.Context, key ledger.BalanceKey, delta int64) (ledger.Balance, error)
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertLines(ctx context.Context, saleID int64, items []LineItem) error
}

// RepositoryPort abstracts repository usage for Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context) ([]Sale, error)
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

// Service posts sale invoices.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// ItemInput is one requested invoice line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// RecordInput describes a sale to post.
type RecordInput struct {
	Actor    policy.Subject
	Customer Customer
	GodownID int64
	Date     time.Time
	Items    []ItemInput
}

// Record validates and posts a sale. Every line's availability is
// checked under the same row locks that cover the decrement, so two
// concurrent sales cannot both pass validation against the same stock.
// Any failing line aborts the whole invoice.
func (s *Service) Record(ctx context.Context, input RecordInput) (Sale, error) {
	if !policy.Authorize(input.Actor, policy.ModuleSales, policy.ActionCreate) {
		return Sale{}, shared.ErrForbidden
	}
	if input.Customer.Name == "" {
		return Sale{}, fmt.Errorf("sales: customer name is required: %w", shared.ErrValidation)
	}
	if len(input.Items) == 0 {
		return Sale{}, fmt.Errorf("sales: at least one item is required: %w", shared.ErrValidation)
	}

	godown, err := s.catalog.GetGodown(ctx, input.GodownID)
	if err != nil {
		return Sale{}, err
	}
	if !godown.IsActive {
		return Sale{}, fmt.Errorf("sales: godown %s is inactive: %w", godown.Code, shared.ErrValidation)
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	doc := Sale{
		Customer:      input.Customer,
		GodownID:      input.GodownID,
		Date:          date,
		PaymentStatus: PaymentStatusPaid,
		CreatedBy:     input.Actor.UserID,
	}
	requested := make(map[ledger.BalanceKey]int64)
	var totalGst float64
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return Sale{}, fmt.Errorf("sales: item quantity must be positive: %w", shared.ErrValidation)
		}
		if item.UnitPrice < 0 {
			return Sale{}, fmt.Errorf("sales: item price must be non-negative: %w", shared.ErrValidation)
		}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return Sale{}, err
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
		requested[ledger.BalanceKey{ProductID: item.ProductID, GodownID: input.GodownID}] += item.Quantity
	}
	doc.Subtotal = shared.RoundMoney(doc.Subtotal)
	doc.CGST, doc.SGST = shared.SplitGST(totalGst)
	doc.TotalAmount = shared.RoundMoney(doc.Subtotal + totalGst)
	doc.PaidAmount = doc.TotalAmount

	keys := make([]ledger.BalanceKey, 0, len(requested))
	for key := range requested {
		keys = append(keys, key)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		balances, err := tx.LockBalances(ctx, keys)
		if err != nil {
			return err
		}
		for key, want := range requested {
			if available := balances[key]; available < want {
				return &ledger.InsufficientStockError{
					ProductID: key.ProductID,
					GodownID:  key.GodownID,
					Requested: want,
					Available: available,
				}
			}
		}

		number, err := tx.NextNumber(ctx, date.Year())
		if err != nil {
			return err
		}
		doc.InvoiceNumber = number

		id, err := tx.InsertSale(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		if err := tx.InsertLines(ctx, id, doc.Items); err != nil {
			return err
		}
		for key, want := range requested {
			if _, err := tx.ApplyDelta(ctx, key, -want); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.Actor.UserID,
			Action:   "sale:record",
			Entity:   "sale",
			EntityID: doc.InvoiceNumber,
			Meta: map[string]any{
				"godown_id":    doc.GodownID,
				"total_amount": doc.TotalAmount,
				"lines":        len(doc.Items),
			},
		})
	}
	return doc, nil
}

// Get fetches one sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales newest first.
func (s *Service) List(ctx context.Context) ([]Sale, error) {
	return s.repo.List(ctx)
}
