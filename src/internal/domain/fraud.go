package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FraudCheckRequest struct {
	TransferID uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Amount     decimal.Decimal
	Currency   string
}

type FraudCheckResult struct {
	RiskLevel      RiskLevel
	Reason         string
	RiskFactors    []string
	Recommendation string
	ServiceError   bool
}

type FraudChecker interface {
	Check(ctx context.Context, req FraudCheckRequest) (FraudCheckResult, error)
}
