package services_test

import (
	"context"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type customerVerifierStub struct {
	verifyFn func(ctx context.Context, customerID uuid.UUID) (domain.CustomerVerification, error)
}

func (s customerVerifierStub) Verify(ctx context.Context, customerID uuid.UUID) (domain.CustomerVerification, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, customerID)
	}
	return domain.CustomerVerification{
		Success:    true,
		CustomerID: customerID,
		IsActive:   true,
		Status:     domain.CustomerStatusActive,
	}, nil
}

type rateProviderStub struct {
	getRateFn func(ctx context.Context, fromCurrency string, toCurrency string) (domain.ExchangeRate, error)
}

func (s rateProviderStub) GetRate(ctx context.Context, fromCurrency string, toCurrency string) (domain.ExchangeRate, error) {
	if s.getRateFn != nil {
		return s.getRateFn(ctx, fromCurrency, toCurrency)
	}
	return domain.ExchangeRate{
		FromCurrency: fromCurrency,
		ToCurrency:   toCurrency,
		Rate:         decimal.NewFromInt(1),
		FetchedAt:    time.Now().UTC(),
	}, nil
}

type fraudCheckerStub struct {
	checkFn func(ctx context.Context, req domain.FraudCheckRequest) (domain.FraudCheckResult, error)
}

func (s fraudCheckerStub) Check(ctx context.Context, req domain.FraudCheckRequest) (domain.FraudCheckResult, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, req)
	}
	return domain.FraudCheckResult{RiskLevel: domain.RiskLevelLow, Reason: "ok"}, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
