package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferLedger stores transfer records keyed by id with a unique,
// case-insensitive index on the transaction code. Implementations return
// copies; callers persist changes through Update.
type TransferLedger interface {
	Add(ctx context.Context, transfer Transfer) (Transfer, error)
	Update(ctx context.Context, transfer Transfer) (Transfer, error)
	GetByID(ctx context.Context, id uuid.UUID) (Transfer, error)
	GetByCode(ctx context.Context, code string) (Transfer, error)
	GetActiveBySender(ctx context.Context, senderID uuid.UUID) ([]Transfer, error)
	GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]Transfer, error)
	SumDailyTotal(ctx context.Context, senderID uuid.UUID, date time.Time) (decimal.Decimal, error)
	GetExpiredApprovals(ctx context.Context, now time.Time) ([]Transfer, error)
}
