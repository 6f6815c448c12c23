package ledger

import (
	"context"
	"fmt"

	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/shared"
)

// CatalogPort exposes the master data lookups the ledger validates
// against.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	GetGodown(ctx context.Context, id int64) (catalog.Godown, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns stock balances. Purchases and sales mutate balances
// through their own transactions; transfers and opening-stock
// adjustments are posted here.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// TransferInput describes a stock movement between two godowns.
type TransferInput struct {
	Actor        policy.Subject
	ProductID    int64
	FromGodownID int64
	ToGodownID   int64
	Quantity     int64
}

// TransferResult carries both updated balances.
type TransferResult struct {
	From Balance
	To   Balance
}

// AdjustmentInput describes an opening-stock addition. Quantity is
// strictly positive; shrinkage corrections are out of scope.
type AdjustmentInput struct {
	Actor     policy.Subject
	ProductID int64
	GodownID  int64
	Quantity  int64
	Note      string
}

// GetBalance returns the current quantity; absent rows read as zero.
func (s *Service) GetBalance(ctx context.Context, productID, godownID int64) (int64, error) {
	return s.repo.GetBalance(ctx, productID, godownID)
}

// ListByGodown lists stock held at one godown.
func (s *Service) ListByGodown(ctx context.Context, godownID int64) ([]GodownStock, error) {
	if _, err := s.catalog.GetGodown(ctx, godownID); err != nil {
		return nil, err
	}
	return s.repo.ListByGodown(ctx, godownID)
}

// ListByProduct lists one product's stock across godowns.
func (s *Service) ListByProduct(ctx context.Context, productID int64) ([]ProductStock, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

// Transfer atomically moves quantity between two godowns. Both sides
// commit together or neither does; stock is never in transit.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if !policy.Authorize(input.Actor, policy.ModuleInventory, policy.ActionEdit) {
		return TransferResult{}, shared.ErrForbidden
	}
	if input.FromGodownID == input.ToGodownID {
		return TransferResult{}, fmt.Errorf("ledger: source and destination godown are the same: %w", shared.ErrInvalidTransfer)
	}
	if input.Quantity <= 0 {
		return TransferResult{}, fmt.Errorf("ledger: transfer quantity must be positive: %w", shared.ErrInvalidTransfer)
	}
	if _, err := s.catalog.GetProduct(ctx, input.ProductID); err != nil {
		return TransferResult{}, err
	}
	if _, err := s.catalog.GetGodown(ctx, input.FromGodownID); err != nil {
		return TransferResult{}, err
	}
	if _, err := s.catalog.GetGodown(ctx, input.ToGodownID); err != nil {
		return TransferResult{}, err
	}

	src := BalanceKey{ProductID: input.ProductID, GodownID: input.FromGodownID}
	dst := BalanceKey{ProductID: input.ProductID, GodownID: input.ToGodownID}

	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		balances, err := tx.LockBalances(ctx, []BalanceKey{src, dst})
		if err != nil {
			return err
		}
		if available := balances[src]; available < input.Quantity {
			return &InsufficientStockError{
				ProductID: input.ProductID,
				GodownID:  input.FromGodownID,
				Requested: input.Quantity,
				Available: available,
			}
		}
		if result.From, err = tx.ApplyDelta(ctx, src, -input.Quantity); err != nil {
			return err
		}
		if result.To, err = tx.ApplyDelta(ctx, dst, input.Quantity); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.recordAudit(ctx, input.Actor.UserID, "stock:transfer", input.ProductID, map[string]any{
		"from_godown_id": input.FromGodownID,
		"to_godown_id":   input.ToGodownID,
		"quantity":       input.Quantity,
	})
	return result, nil
}

// Adjust posts an opening-stock addition. Recorded as its own audit
// action so purchase-cost reports stay clean.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (Balance, error) {
	if !policy.Authorize(input.Actor, policy.ModuleInventory, policy.ActionEdit) {
		return Balance{}, shared.ErrForbidden
	}
	if input.Quantity <= 0 {
		return Balance{}, fmt.Errorf("ledger: adjustment quantity must be positive: %w", shared.ErrValidation)
	}
	if _, err := s.catalog.GetProduct(ctx, input.ProductID); err != nil {
		return Balance{}, err
	}
	godown, err := s.catalog.GetGodown(ctx, input.GodownID)
	if err != nil {
		return Balance{}, err
	}
	if !godown.IsActive {
		return Balance{}, fmt.Errorf("ledger: godown %s is inactive: %w", godown.Code, shared.ErrValidation)
	}

	key := BalanceKey{ProductID: input.ProductID, GodownID: input.GodownID}
	var balance Balance
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.LockBalances(ctx, []BalanceKey{key}); err != nil {
			return err
		}
		balance, err = tx.ApplyDelta(ctx, key, input.Quantity)
		return err
	})
	if err != nil {
		return Balance{}, err
	}
	s.recordAudit(ctx, input.Actor.UserID, "stock:adjust", input.ProductID, map[string]any{
		"godown_id": input.GodownID,
		"quantity":  input.Quantity,
		"note":      input.Note,
	})
	return balance, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_balance",
		EntityID: fmt.Sprintf("product:%d", productID),
		Meta:     meta,
	})
}
