package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ service_interfaces.TransferService = (*TransferService)(nil)

var (
	DailyLimit         = decimal.NewFromInt(50000)
	HighValueThreshold = decimal.NewFromInt(10000)
)

const (
	ApprovalWindow          = 5 * time.Minute
	transactionCodeAttempts = 5

	cancelledByUserReason = "Cancelled by user"
	customerBlockedReason = "Customer blocked"
)

var tracer = otel.Tracer("github.com/api-sage/transfer-orchestrator/src/internal/usecase/services")

type TransferService struct {
	ledger         domain.TransferLedger
	customers      domain.CustomerVerifier
	fraud          domain.FraudChecker
	rateService    service_interfaces.RateService
	chargesService service_interfaces.ChargesService
	locker         *CustomerLocker
	now            func() time.Time
	newCode        func() (string, error)
}

func NewTransferService(
	ledger domain.TransferLedger,
	customers domain.CustomerVerifier,
	fraud domain.FraudChecker,
	rateService service_interfaces.RateService,
	chargesService service_interfaces.ChargesService,
	locker *CustomerLocker,
) *TransferService {
	if locker == nil {
		locker = NewCustomerLocker()
	}
	return &TransferService{
		ledger:         ledger,
		customers:      customers,
		fraud:          fraud,
		rateService:    rateService,
		chargesService: chargesService,
		locker:         locker,
		now:            time.Now,
		newCode:        domain.NewTransactionCode,
	}
}

// WithClock replaces the time source used for timestamps and the daily window.
func (s *TransferService) WithClock(now func() time.Time) *TransferService {
	s.now = now
	return s
}

func (s *TransferService) WithCodeGenerator(newCode func() (string, error)) *TransferService {
	s.newCode = newCode
	return s
}

func (s *TransferService) CreateTransfer(ctx context.Context, req models.CreateTransferRequest) (commons.Response[models.TransferResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.CreateTransfer")
	defer span.End()

	logger.InfoContext(ctx, "transfer service create transfer request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return failure[models.TransferResponse](ctx, span, commons.NewValidationError(err.Error()))
	}

	senderID, receiverID := req.Parties()
	currency := req.NormalizedCurrency()
	span.SetAttributes(
		attribute.String("transfer.sender_id", senderID.String()),
		attribute.String("transfer.currency", currency),
	)

	if err := s.verifyParty(ctx, senderID, "Sender"); err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}
	if err := s.verifyParty(ctx, receiverID, "Receiver"); err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}

	amountInTry, rate, err := s.rateService.ConvertToTry(ctx, req.Amount, currency)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}
	tryEquivalent := req.Amount
	if amountInTry != nil {
		tryEquivalent = *amountInTry
	}

	release, err := s.locker.Acquire(ctx, senderID)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, fmt.Errorf("acquire sender lock: %w", err))
	}
	defer release()

	now := s.now().UTC()
	dailyTotal, err := s.ledger.SumDailyTotal(ctx, senderID, now)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, fmt.Errorf("sum daily total: %w", err))
	}
	if dailyTotal.Add(tryEquivalent).GreaterThan(DailyLimit) {
		return failure[models.TransferResponse](ctx, span, commons.NewValidationError(fmt.Sprintf(
			"Daily transfer limit exceeded. Current: %s TRY, Limit: %s TRY",
			formatAmount(dailyTotal), formatAmount(DailyLimit),
		)))
	}

	transferID := uuid.New()
	fraudResult := s.checkFraud(ctx, domain.FraudCheckRequest{
		TransferID: transferID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     tryEquivalent,
		Currency:   domain.BaseCurrency,
	})
	riskLevel := fraudResult.RiskLevel

	transfer := domain.Transfer{
		ID:                 transferID,
		SenderCustomerID:   senderID,
		ReceiverCustomerID: receiverID,
		Amount:             req.Amount,
		Currency:           currency,
		ExchangeRate:       rate,
		AmountInTry:        amountInTry,
		Fee:                s.chargesService.GetCharges(tryEquivalent),
		RiskLevel:          &riskLevel,
		CreatedAt:          now,
	}

	if riskLevel == domain.RiskLevelHigh {
		reason := fmt.Sprintf("High risk transfer rejected: %s", fraudResult.Reason)
		transfer.Status = domain.TransferStatusFailed
		transfer.FailureReason = &reason

		if _, err := s.addWithUniqueCode(ctx, transfer); err != nil {
			return failure[models.TransferResponse](ctx, span, err)
		}
		logger.InfoContext(ctx, "transfer service rejected high risk transfer", logger.Fields{
			"transferId": transferID.String(),
			"reason":     fraudResult.Reason,
		})
		return failure[models.TransferResponse](ctx, span, commons.NewValidationError(
			fmt.Sprintf("Transfer rejected due to high risk: %s", fraudResult.Reason),
		))
	}

	transfer.Status = domain.TransferStatusPending
	if tryEquivalent.GreaterThan(HighValueThreshold) {
		dueAt := now.Add(ApprovalWindow)
		transfer.Status = domain.TransferStatusAwaitingApproval
		transfer.ApprovalDueAt = &dueAt
	}

	saved, err := s.addWithUniqueCode(ctx, transfer)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}

	logger.InfoContext(ctx, "transfer service create transfer success", logger.Fields{
		"transferId":      saved.ID.String(),
		"transactionCode": saved.TransactionCode,
		"status":          string(saved.Status),
		"riskLevel":       string(riskLevel),
	})

	return commons.SuccessResponse("transfer created successfully", models.NewTransferResponse(saved)), nil
}

func (s *TransferService) GetTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.GetTransfer")
	defer span.End()

	transfer, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, lookupError(err, id))
	}
	return commons.SuccessResponse("transfer fetched successfully", models.NewTransferResponse(transfer)), nil
}

func (s *TransferService) GetTransferByCode(ctx context.Context, code string) (commons.Response[models.TransferResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.GetTransferByCode")
	defer span.End()

	normalized := domain.NormalizeTransactionCode(code)
	if normalized == "" {
		return failure[models.TransferResponse](ctx, span, commons.NewValidationError("transaction code is required"))
	}

	transfer, err := s.ledger.GetByCode(ctx, normalized)
	if err != nil {
		return failure[models.TransferResponse](ctx, span, lookupError(err, normalized))
	}
	return commons.SuccessResponse("transfer fetched successfully", models.NewTransferResponse(transfer)), nil
}

func (s *TransferService) CompleteTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.CompleteTransfer")
	defer span.End()

	saved, err := s.transition(ctx, id, func(transfer *domain.Transfer) error {
		if err := transfer.Complete(s.now()); err != nil {
			return commons.NewValidationError(
				fmt.Sprintf("Transfer cannot be completed. Current status: %s", transfer.Status),
			)
		}
		return nil
	})
	if err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}

	logger.InfoContext(ctx, "transfer service transfer completed", logger.Fields{"transferId": id.String()})
	return commons.SuccessResponse("transfer completed successfully", models.NewTransferResponse(saved)), nil
}

func (s *TransferService) CancelTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.CancelTransfer")
	defer span.End()

	saved, err := s.transition(ctx, id, func(transfer *domain.Transfer) error {
		if err := transfer.Cancel(cancelledByUserReason, s.now()); err != nil {
			return commons.NewValidationError(
				fmt.Sprintf("Transfer cannot be cancelled. Current status: %s", transfer.Status),
			)
		}
		return nil
	})
	if err != nil {
		return failure[models.TransferResponse](ctx, span, err)
	}

	logger.InfoContext(ctx, "transfer service transfer cancelled", logger.Fields{"transferId": id.String()})
	return commons.SuccessResponse("Transfer cancelled successfully. Fee has been refunded.", models.NewTransferResponse(saved)), nil
}

// GetDailyTotal reports the customer's running total for today. It takes no
// lock, so it may miss a transfer that is being created concurrently.
func (s *TransferService) GetDailyTotal(ctx context.Context, customerID uuid.UUID) (commons.Response[models.DailyTotalResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.GetDailyTotal")
	defer span.End()

	verification, err := s.customers.Verify(ctx, customerID)
	if err != nil || !verification.Success {
		if err != nil {
			logger.ErrorContext(ctx, "transfer service daily total verification failed", err, logger.Fields{
				"customerId": customerID.String(),
			})
		}
		return failure[models.DailyTotalResponse](ctx, span, commons.NewNotFoundError("Customer", customerID))
	}

	now := s.now().UTC()
	total, err := s.ledger.SumDailyTotal(ctx, customerID, now)
	if err != nil {
		return failure[models.DailyTotalResponse](ctx, span, fmt.Errorf("sum daily total: %w", err))
	}

	remaining := DailyLimit.Sub(total)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return commons.SuccessResponse("daily total fetched successfully", models.DailyTotalResponse{
		CustomerID:     customerID.String(),
		Date:           now.Format("2006-01-02"),
		TotalAmount:    total,
		DailyLimit:     DailyLimit,
		RemainingLimit: remaining,
		Currency:       domain.BaseCurrency,
	}), nil
}

// CancelPendingForBlockedCustomer cancels every open transfer the customer is
// a party to. A record that fails to save is logged and skipped.
func (s *TransferService) CancelPendingForBlockedCustomer(ctx context.Context, customerID uuid.UUID) (commons.Response[models.CustomerBlockedResponse], error) {
	ctx, span := tracer.Start(ctx, "TransferService.CancelPendingForBlockedCustomer")
	defer span.End()

	transfers, err := s.ledger.GetActiveByCustomer(ctx, customerID)
	if err != nil {
		return failure[models.CustomerBlockedResponse](ctx, span, fmt.Errorf("list active transfers: %w", err))
	}

	cancelled := 0
	for _, transfer := range transfers {
		_, err := s.transition(ctx, transfer.ID, func(current *domain.Transfer) error {
			return current.Cancel(customerBlockedReason, s.now())
		})
		if errors.Is(err, domain.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			logger.ErrorContext(ctx, "transfer service blocked customer cancellation failed", err, logger.Fields{
				"transferId": transfer.ID.String(),
				"customerId": customerID.String(),
			})
			continue
		}
		cancelled++
		logger.InfoContext(ctx, "transfer service transfer cancelled for blocked customer", logger.Fields{
			"transferId": transfer.ID.String(),
			"customerId": customerID.String(),
		})
	}

	span.SetAttributes(attribute.Int("transfer.cancelled", cancelled))
	return commons.SuccessResponse("pending transfers cancelled", models.CustomerBlockedResponse{
		CustomerID:         customerID.String(),
		CancelledTransfers: cancelled,
	}), nil
}

// ProcessExpiredApprovals drops the approval gate from every transfer whose
// window has elapsed. Those transfers go back to PENDING; nothing is
// completed or rejected here.
func (s *TransferService) ProcessExpiredApprovals(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "TransferService.ProcessExpiredApprovals")
	defer span.End()

	now := s.now().UTC()
	expired, err := s.ledger.GetExpiredApprovals(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("list expired approvals: %w", err)
	}

	released := 0
	var errs []error
	for _, transfer := range expired {
		_, err := s.transition(ctx, transfer.ID, func(current *domain.Transfer) error {
			return current.ReleaseApproval(now)
		})
		if errors.Is(err, domain.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("release transfer %s: %w", transfer.ID, err))
			continue
		}
		released++
		logger.InfoContext(ctx, "transfer service approval window expired", logger.Fields{
			"transferId": transfer.ID.String(),
		})
	}

	return released, errors.Join(errs...)
}

// transition applies change to the stored transfer while holding its sender's
// lock. The record is re-read under the lock, so a copy listed earlier never
// overwrites a status written in between.
func (s *TransferService) transition(ctx context.Context, id uuid.UUID, change func(*domain.Transfer) error) (domain.Transfer, error) {
	listed, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return domain.Transfer{}, lookupError(err, id)
	}

	release, err := s.locker.Acquire(ctx, listed.SenderCustomerID)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("acquire sender lock: %w", err)
	}
	defer release()

	current, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return domain.Transfer{}, lookupError(err, id)
	}
	if err := change(&current); err != nil {
		return domain.Transfer{}, err
	}
	return s.ledger.Update(ctx, current)
}

func (s *TransferService) verifyParty(ctx context.Context, customerID uuid.UUID, role string) error {
	verification, err := s.customers.Verify(ctx, customerID)
	if err != nil {
		logger.ErrorContext(ctx, "transfer service customer verification failed", err, logger.Fields{
			"customerId": customerID.String(),
			"role":       role,
		})
		var collaboratorErr *commons.CollaboratorError
		if errors.As(err, &collaboratorErr) && collaboratorErr.Err != nil {
			return commons.NewValidationError(collaboratorErr.Err.Error())
		}
		return commons.NewValidationError(fmt.Sprintf("%s customer not found or inactive", role))
	}

	if !verification.Success {
		message := strings.TrimSpace(verification.ErrorMessage)
		if message == "" {
			message = fmt.Sprintf("%s customer not found or inactive", role)
		}
		return commons.NewValidationError(message)
	}
	if !verification.IsActive {
		return commons.NewValidationError(fmt.Sprintf("%s customer is not active", role))
	}
	return nil
}

// checkFraud never fails the transfer. An error from the checker is
// recorded as MEDIUM risk with the error text as the reason.
func (s *TransferService) checkFraud(ctx context.Context, req domain.FraudCheckRequest) domain.FraudCheckResult {
	result, err := s.fraud.Check(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "transfer service fraud check failed, continuing with medium risk", err, logger.Fields{
			"transferId": req.TransferID.String(),
		})
		return domain.FraudCheckResult{
			RiskLevel:    domain.RiskLevelMedium,
			Reason:       err.Error(),
			ServiceError: true,
		}
	}
	if result.RiskLevel == "" {
		result.RiskLevel = domain.RiskLevelMedium
	}
	return result
}

func (s *TransferService) addWithUniqueCode(ctx context.Context, transfer domain.Transfer) (domain.Transfer, error) {
	var lastErr error
	for attempt := 0; attempt < transactionCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return domain.Transfer{}, fmt.Errorf("generate transaction code: %w", err)
		}
		transfer.TransactionCode = code

		saved, err := s.ledger.Add(ctx, transfer)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, domain.ErrDuplicateTransactionCode) {
			return domain.Transfer{}, fmt.Errorf("add transfer: %w", err)
		}
		lastErr = err
	}
	return domain.Transfer{}, fmt.Errorf("add transfer after %d attempts: %w", transactionCodeAttempts, lastErr)
}

func lookupError(err error, id any) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return commons.NewNotFoundError("Transfer", id)
	}
	return fmt.Errorf("get transfer: %w", err)
}

// failure logs err, marks the span and builds the error envelope for it.
func failure[T any](ctx context.Context, span trace.Span, err error) (commons.Response[T], error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status, message, details := describeError(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "transfer service operation failed", err, nil)
	} else {
		logger.InfoContext(ctx, "transfer service request rejected", logger.Fields{
			"status": status,
			"reason": err.Error(),
		})
	}
	return commons.ErrorResponse[T](status, message, details...), err
}

func describeError(err error) (int, string, []string) {
	var validationErr *commons.ValidationError
	var notFoundErr *commons.NotFoundError
	var collaboratorErr *commons.CollaboratorError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation failed", validationErr.Messages
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, notFoundErr.Error(), nil
	case errors.As(err, &collaboratorErr):
		return http.StatusBadGateway, "downstream service failed", []string{collaboratorErr.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled", nil
	default:
		return http.StatusInternalServerError, "failed to process transfer", []string{"Unable to process transfer right now"}
	}
}

// formatAmount renders d with two decimals and thousands separators, e.g. 50,000.00.
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return sign + b.String() + "." + fracPart
}
