package memory

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ domain.TransferLedger = (*TransferLedger)(nil)

// TransferLedger keeps transfers in process memory. Reads take a shared lock
// and return copies; writes are last-writer-wins upserts by id.
type TransferLedger struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]domain.Transfer
	codeIndex map[string]uuid.UUID
}

func NewTransferLedger() *TransferLedger {
	return &TransferLedger{
		transfers: make(map[uuid.UUID]domain.Transfer),
		codeIndex: make(map[string]uuid.UUID),
	}
}

func (l *TransferLedger) Add(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	code := domain.NormalizeTransactionCode(transfer.TransactionCode)

	l.mu.Lock()
	defer l.mu.Unlock()

	if owner, ok := l.codeIndex[code]; ok && owner != transfer.ID {
		return domain.Transfer{}, domain.ErrDuplicateTransactionCode
	}

	transfer.TransactionCode = code
	l.transfers[transfer.ID] = transfer.Clone()
	l.codeIndex[code] = transfer.ID
	return transfer.Clone(), nil
}

func (l *TransferLedger) Update(_ context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transfers[transfer.ID] = transfer.Clone()
	return transfer.Clone(), nil
}

func (l *TransferLedger) GetByID(_ context.Context, id uuid.UUID) (domain.Transfer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	transfer, ok := l.transfers[id]
	if !ok {
		return domain.Transfer{}, domain.ErrRecordNotFound
	}
	return transfer.Clone(), nil
}

func (l *TransferLedger) GetByCode(ctx context.Context, code string) (domain.Transfer, error) {
	l.mu.RLock()
	id, ok := l.codeIndex[domain.NormalizeTransactionCode(code)]
	l.mu.RUnlock()
	if !ok {
		return domain.Transfer{}, domain.ErrRecordNotFound
	}
	return l.GetByID(ctx, id)
}

func (l *TransferLedger) GetActiveBySender(_ context.Context, senderID uuid.UUID) ([]domain.Transfer, error) {
	return l.filter(func(t domain.Transfer) bool {
		return t.SenderCustomerID == senderID && t.Status.IsActive()
	}), nil
}

func (l *TransferLedger) GetActiveByCustomer(_ context.Context, customerID uuid.UUID) ([]domain.Transfer, error) {
	return l.filter(func(t domain.Transfer) bool {
		return (t.SenderCustomerID == customerID || t.ReceiverCustomerID == customerID) && t.Status.IsActive()
	}), nil
}

func (l *TransferLedger) SumDailyTotal(_ context.Context, senderID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	year, month, day := date.UTC().Date()

	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, t := range l.transfers {
		if t.SenderCustomerID != senderID {
			continue
		}
		if t.Status == domain.TransferStatusCancelled || t.Status == domain.TransferStatusFailed {
			continue
		}
		y, m, d := t.CreatedAt.UTC().Date()
		if y != year || m != month || d != day {
			continue
		}
		total = total.Add(t.TryEquivalent())
	}
	return total, nil
}

func (l *TransferLedger) GetExpiredApprovals(_ context.Context, now time.Time) ([]domain.Transfer, error) {
	return l.filter(func(t domain.Transfer) bool {
		return t.Status == domain.TransferStatusAwaitingApproval &&
			t.ApprovalDueAt != nil &&
			!t.ApprovalDueAt.After(now)
	}), nil
}

func (l *TransferLedger) filter(match func(domain.Transfer) bool) []domain.Transfer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Transfer, 0)
	for _, t := range l.transfers {
		if match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
