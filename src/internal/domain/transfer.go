package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const BaseCurrency = "TRY"

type TransferStatus string

const (
	TransferStatusPending          TransferStatus = "PENDING"
	TransferStatusAwaitingApproval TransferStatus = "AWAITING_APPROVAL"
	TransferStatusCompleted        TransferStatus = "COMPLETED"
	TransferStatusCancelled        TransferStatus = "CANCELLED"
	TransferStatusFailed           TransferStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusCancelled, TransferStatusFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether s still counts as an open transfer.
func (s TransferStatus) IsActive() bool {
	return s == TransferStatusPending || s == TransferStatusAwaitingApproval
}

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

type Transfer struct {
	ID                 uuid.UUID
	TransactionCode    string
	SenderCustomerID   uuid.UUID
	ReceiverCustomerID uuid.UUID
	Amount             decimal.Decimal
	Currency           string
	ExchangeRate       *decimal.Decimal
	AmountInTry        *decimal.Decimal
	Fee                decimal.Decimal
	Status             TransferStatus
	RiskLevel          *RiskLevel
	CreatedAt          time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	ApprovalDueAt      *time.Time
	FeeRefunded        bool
	FailureReason      *string
}

// TryEquivalent is the value counted against the daily limit.
func (t Transfer) TryEquivalent() decimal.Decimal {
	if t.AmountInTry != nil {
		return *t.AmountInTry
	}
	return t.Amount
}

// Complete moves an open transfer to COMPLETED.
func (t *Transfer) Complete(now time.Time) error {
	if !t.Status.IsActive() {
		return fmt.Errorf("%w: cannot complete transfer in status %s", ErrInvalidTransition, t.Status)
	}

	completedAt := now.UTC()
	t.Status = TransferStatusCompleted
	t.CompletedAt = &completedAt
	t.ApprovalDueAt = nil
	return nil
}

// Cancel moves a non-terminal transfer to CANCELLED and marks the fee as refunded.
func (t *Transfer) Cancel(reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel transfer in status %s", ErrInvalidTransition, t.Status)
	}

	cancelledAt := now.UTC()
	t.Status = TransferStatusCancelled
	t.CancelledAt = &cancelledAt
	t.ApprovalDueAt = nil
	t.FeeRefunded = true
	t.FailureReason = &reason
	return nil
}

// ReleaseApproval drops the approval gate once the window has elapsed. The
// transfer goes back to PENDING; it is neither completed nor rejected.
func (t *Transfer) ReleaseApproval(now time.Time) error {
	if t.Status != TransferStatusAwaitingApproval {
		return fmt.Errorf("%w: transfer is not awaiting approval (status %s)", ErrInvalidTransition, t.Status)
	}
	if t.ApprovalDueAt == nil || t.ApprovalDueAt.After(now) {
		return fmt.Errorf("%w: approval window still open", ErrInvalidTransition)
	}

	t.Status = TransferStatusPending
	t.ApprovalDueAt = nil
	return nil
}

// Clone returns a deep copy so stored records cannot be changed through shared pointers.
func (t Transfer) Clone() Transfer {
	out := t
	out.ExchangeRate = clonePtr(t.ExchangeRate)
	out.AmountInTry = clonePtr(t.AmountInTry)
	out.RiskLevel = clonePtr(t.RiskLevel)
	out.CompletedAt = clonePtr(t.CompletedAt)
	out.CancelledAt = clonePtr(t.CancelledAt)
	out.ApprovalDueAt = clonePtr(t.ApprovalDueAt)
	out.FailureReason = clonePtr(t.FailureReason)
	return out
}

func clonePtr[T any](value *T) *T {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
