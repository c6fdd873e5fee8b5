package models

import (
	"errors"
	"strings"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateTransferRequest struct {
	SenderCustomerID   string          `json:"senderCustomerId"`
	ReceiverCustomerID string          `json:"receiverCustomerId"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

func (r CreateTransferRequest) Validate() error {
	var errs []string

	senderID, senderErr := uuid.Parse(strings.TrimSpace(r.SenderCustomerID))
	if senderErr != nil || senderID == uuid.Nil {
		errs = append(errs, "senderCustomerId must be a valid id")
	}
	receiverID, receiverErr := uuid.Parse(strings.TrimSpace(r.ReceiverCustomerID))
	if receiverErr != nil || receiverID == uuid.Nil {
		errs = append(errs, "receiverCustomerId must be a valid id")
	}
	if senderErr == nil && receiverErr == nil && senderID == receiverID {
		errs = append(errs, "senderCustomerId and receiverCustomerId cannot be the same")
	}

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	currency := strings.TrimSpace(r.Currency)
	if len(currency) != 3 || !lettersOnly(currency) {
		errs = append(errs, "currency must be 3 letters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Parties returns the parsed sender and receiver ids. Call Validate first.
func (r CreateTransferRequest) Parties() (uuid.UUID, uuid.UUID) {
	senderID, _ := uuid.Parse(strings.TrimSpace(r.SenderCustomerID))
	receiverID, _ := uuid.Parse(strings.TrimSpace(r.ReceiverCustomerID))
	return senderID, receiverID
}

func (r CreateTransferRequest) NormalizedCurrency() string {
	return strings.ToUpper(strings.TrimSpace(r.Currency))
}

type TransferResponse struct {
	ID                 string           `json:"id"`
	TransactionCode    string           `json:"transactionCode"`
	SenderCustomerID   string           `json:"senderCustomerId"`
	ReceiverCustomerID string           `json:"receiverCustomerId"`
	Amount             decimal.Decimal  `json:"amount"`
	Currency           string           `json:"currency"`
	ExchangeRate       *decimal.Decimal `json:"exchangeRate,omitempty"`
	AmountInTry        *decimal.Decimal `json:"amountInTry,omitempty"`
	Fee                decimal.Decimal  `json:"fee"`
	Status             string           `json:"status"`
	RiskLevel          *string          `json:"riskLevel,omitempty"`
	CreatedAt          string           `json:"createdAt"`
	CompletedAt        *string          `json:"completedAt,omitempty"`
	CancelledAt        *string          `json:"cancelledAt,omitempty"`
	ApprovalDueAt      *string          `json:"approvalDueAt,omitempty"`
	FeeRefunded        bool             `json:"feeRefunded"`
	FailureReason      *string          `json:"failureReason,omitempty"`
}

func NewTransferResponse(t domain.Transfer) TransferResponse {
	resp := TransferResponse{
		ID:                 t.ID.String(),
		TransactionCode:    t.TransactionCode,
		SenderCustomerID:   t.SenderCustomerID.String(),
		ReceiverCustomerID: t.ReceiverCustomerID.String(),
		Amount:             t.Amount,
		Currency:           t.Currency,
		ExchangeRate:       t.ExchangeRate,
		AmountInTry:        t.AmountInTry,
		Fee:                t.Fee,
		Status:             string(t.Status),
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt:        formatTime(t.CompletedAt),
		CancelledAt:        formatTime(t.CancelledAt),
		ApprovalDueAt:      formatTime(t.ApprovalDueAt),
		FeeRefunded:        t.FeeRefunded,
		FailureReason:      t.FailureReason,
	}
	if t.RiskLevel != nil {
		level := string(*t.RiskLevel)
		resp.RiskLevel = &level
	}
	return resp
}

type DailyTotalResponse struct {
	CustomerID     string          `json:"customerId"`
	Date           string          `json:"date"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	DailyLimit     decimal.Decimal `json:"dailyLimit"`
	RemainingLimit decimal.Decimal `json:"remainingLimit"`
	Currency       string          `json:"currency"`
}

type CustomerBlockedRequest struct {
	CustomerID string `json:"customerId"`
}

func (r CustomerBlockedRequest) Validate() error {
	id, err := uuid.Parse(strings.TrimSpace(r.CustomerID))
	if err != nil || id == uuid.Nil {
		return errors.New("customerId must be a valid id")
	}
	return nil
}

type CustomerBlockedResponse struct {
	CustomerID         string `json:"customerId"`
	CancelledTransfers int    `json:"cancelledTransfers"`
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339Nano)
	return &formatted
}

func lettersOnly(value string) bool {
	for _, ch := range value {
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}
