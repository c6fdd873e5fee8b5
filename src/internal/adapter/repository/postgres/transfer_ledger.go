package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var _ domain.TransferLedger = (*TransferLedger)(nil)

const transferColumns = `
	id,
	transaction_code,
	sender_customer_id,
	receiver_customer_id,
	amount,
	currency,
	exchange_rate,
	amount_in_try,
	fee,
	status,
	risk_level,
	created_at,
	completed_at,
	cancelled_at,
	approval_due_at,
	fee_refunded,
	failure_reason`

const upsertTransferQuery = `
INSERT INTO transfers (` + transferColumns + `
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
)
ON CONFLICT (id) DO UPDATE
SET transaction_code = EXCLUDED.transaction_code,
    sender_customer_id = EXCLUDED.sender_customer_id,
    receiver_customer_id = EXCLUDED.receiver_customer_id,
    amount = EXCLUDED.amount,
    currency = EXCLUDED.currency,
    exchange_rate = EXCLUDED.exchange_rate,
    amount_in_try = EXCLUDED.amount_in_try,
    fee = EXCLUDED.fee,
    status = EXCLUDED.status,
    risk_level = EXCLUDED.risk_level,
    created_at = EXCLUDED.created_at,
    completed_at = EXCLUDED.completed_at,
    cancelled_at = EXCLUDED.cancelled_at,
    approval_due_at = EXCLUDED.approval_due_at,
    fee_refunded = EXCLUDED.fee_refunded,
    failure_reason = EXCLUDED.failure_reason`

// TransferLedger persists transfers in Postgres. It is a drop-in for the
// in-memory ledger when records must survive a restart.
type TransferLedger struct {
	db *sql.DB
}

func NewTransferLedger(db *sql.DB) *TransferLedger {
	return &TransferLedger{db: db}
}

func (r *TransferLedger) Add(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	transfer.TransactionCode = domain.NormalizeTransactionCode(transfer.TransactionCode)
	if err := r.upsert(ctx, transfer); err != nil {
		if isUniqueViolation(err) {
			return domain.Transfer{}, domain.ErrDuplicateTransactionCode
		}
		logger.Error("transfer ledger add failed", err, logger.Fields{
			"transferId":      transfer.ID.String(),
			"transactionCode": transfer.TransactionCode,
		})
		return domain.Transfer{}, fmt.Errorf("add transfer: %w", err)
	}
	return transfer, nil
}

func (r *TransferLedger) Update(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	if err := r.upsert(ctx, transfer); err != nil {
		logger.Error("transfer ledger update failed", err, logger.Fields{
			"transferId": transfer.ID.String(),
			"status":     transfer.Status,
		})
		return domain.Transfer{}, fmt.Errorf("update transfer: %w", err)
	}
	return transfer, nil
}

func (r *TransferLedger) upsert(ctx context.Context, t domain.Transfer) error {
	_, err := r.db.ExecContext(
		ctx,
		upsertTransferQuery,
		t.ID,
		t.TransactionCode,
		t.SenderCustomerID,
		t.ReceiverCustomerID,
		t.Amount,
		t.Currency,
		nullDecimal(t.ExchangeRate),
		nullDecimal(t.AmountInTry),
		t.Fee,
		string(t.Status),
		nullRisk(t.RiskLevel),
		t.CreatedAt.UTC(),
		nullTime(t.CompletedAt),
		nullTime(t.CancelledAt),
		nullTime(t.ApprovalDueAt),
		t.FeeRefunded,
		nullString(t.FailureReason),
	)
	return err
}

func (r *TransferLedger) GetByID(ctx context.Context, id uuid.UUID) (domain.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
}

func (r *TransferLedger) GetByCode(ctx context.Context, code string) (domain.Transfer, error) {
	return r.getOne(ctx, `SELECT `+transferColumns+` FROM transfers WHERE transaction_code = $1`, domain.NormalizeTransactionCode(code))
}

func (r *TransferLedger) GetActiveBySender(ctx context.Context, senderID uuid.UUID) ([]domain.Transfer, error) {
	return r.query(ctx, `
SELECT `+transferColumns+`
FROM transfers
WHERE sender_customer_id = $1
  AND status IN ('PENDING', 'AWAITING_APPROVAL')`, senderID)
}

func (r *TransferLedger) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Transfer, error) {
	return r.query(ctx, `
SELECT `+transferColumns+`
FROM transfers
WHERE (sender_customer_id = $1 OR receiver_customer_id = $1)
  AND status IN ('PENDING', 'AWAITING_APPROVAL')`, customerID)
}

func (r *TransferLedger) SumDailyTotal(ctx context.Context, senderID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	start, end := dayBounds(date)

	const query = `
SELECT COALESCE(SUM(COALESCE(amount_in_try, amount)), 0)
FROM transfers
WHERE sender_customer_id = $1
  AND created_at >= $2
  AND created_at < $3
  AND status NOT IN ('CANCELLED', 'FAILED')`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, senderID, start, end).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum daily total: %w", err)
	}
	return total, nil
}

func (r *TransferLedger) GetExpiredApprovals(ctx context.Context, now time.Time) ([]domain.Transfer, error) {
	return r.query(ctx, `
SELECT `+transferColumns+`
FROM transfers
WHERE status = 'AWAITING_APPROVAL'
  AND approval_due_at IS NOT NULL
  AND approval_due_at <= $1`, now.UTC())
}

func (r *TransferLedger) getOne(ctx context.Context, query string, arg any) (domain.Transfer, error) {
	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transfer{}, domain.ErrRecordNotFound
		}
		return domain.Transfer{}, fmt.Errorf("get transfer: %w", err)
	}
	return transfer, nil
}

func (r *TransferLedger) query(ctx context.Context, query string, args ...any) ([]domain.Transfer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (domain.Transfer, error) {
	var (
		t             domain.Transfer
		status        string
		exchangeRate  decimal.NullDecimal
		amountInTry   decimal.NullDecimal
		riskLevel     sql.NullString
		completedAt   sql.NullTime
		cancelledAt   sql.NullTime
		approvalDueAt sql.NullTime
		failureReason sql.NullString
	)

	if err := row.Scan(
		&t.ID,
		&t.TransactionCode,
		&t.SenderCustomerID,
		&t.ReceiverCustomerID,
		&t.Amount,
		&t.Currency,
		&exchangeRate,
		&amountInTry,
		&t.Fee,
		&status,
		&riskLevel,
		&t.CreatedAt,
		&completedAt,
		&cancelledAt,
		&approvalDueAt,
		&t.FeeRefunded,
		&failureReason,
	); err != nil {
		return domain.Transfer{}, err
	}

	t.Status = domain.TransferStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	if exchangeRate.Valid {
		t.ExchangeRate = &exchangeRate.Decimal
	}
	if amountInTry.Valid {
		t.AmountInTry = &amountInTry.Decimal
	}
	if riskLevel.Valid {
		level := domain.RiskLevel(riskLevel.String)
		t.RiskLevel = &level
	}
	t.CompletedAt = timePtr(completedAt)
	t.CancelledAt = timePtr(cancelledAt)
	t.ApprovalDueAt = timePtr(approvalDueAt)
	if failureReason.Valid {
		reason := failureReason.String
		t.FailureReason = &reason
	}
	return t, nil
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	year, month, day := date.UTC().Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}

func nullRisk(value *domain.RiskLevel) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*value), Valid: true}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}
