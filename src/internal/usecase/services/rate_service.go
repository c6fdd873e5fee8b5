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
	"github.com/shopspring/decimal"
)

var _ service_interfaces.RateService = (*RateService)(nil)

type RateService struct {
	provider domain.ExchangeRateProvider
}

func NewRateService(provider domain.ExchangeRateProvider) *RateService {
	return &RateService{provider: provider}
}

func (s *RateService) GetRate(ctx context.Context, currency string) (commons.Response[models.RateResponse], error) {
	if err := models.ValidateCurrency(currency); err != nil {
		return commons.ErrorResponse[models.RateResponse](http.StatusBadRequest, "validation failed", err.Error()), commons.NewValidationError(err.Error())
	}

	ccy := strings.ToUpper(strings.TrimSpace(currency))
	rate, err := s.provider.GetRate(ctx, domain.BaseCurrency, ccy)
	if err != nil {
		logger.ErrorContext(ctx, "rate service get rate failed", err, logger.Fields{"currency": ccy})
		message := rateFailureMessage(ccy, err)
		return commons.ErrorResponse[models.RateResponse](http.StatusBadRequest, "failed to get rate", message), commons.NewValidationError(message)
	}

	return commons.SuccessResponse("rate fetched successfully", models.RateResponse{
		FromCurrency: rate.FromCurrency,
		ToCurrency:   rate.ToCurrency,
		Rate:         rate.Rate,
		FetchedAt:    rate.FetchedAt.UTC().Format(time.RFC3339),
	}), nil
}

// ConvertToTry returns the TRY-equivalent of amount and the rate used. Both
// are nil for TRY amounts. Failures come back as *commons.ValidationError.
func (s *RateService) ConvertToTry(ctx context.Context, amount decimal.Decimal, currency string) (*decimal.Decimal, *decimal.Decimal, error) {
	ccy := strings.ToUpper(strings.TrimSpace(currency))
	if ccy == domain.BaseCurrency {
		return nil, nil, nil
	}

	rate, err := s.provider.GetRate(ctx, domain.BaseCurrency, ccy)
	if err != nil {
		logger.ErrorContext(ctx, "rate service conversion failed", err, logger.Fields{"currency": ccy})
		return nil, nil, commons.NewValidationError(rateFailureMessage(ccy, err))
	}

	amountInTry := amount.Mul(rate.Rate)
	rateUsed := rate.Rate
	return &amountInTry, &rateUsed, nil
}

func rateFailureMessage(currency string, err error) string {
	var collaboratorErr *commons.CollaboratorError
	if errors.As(err, &collaboratorErr) && collaboratorErr.Err != nil && collaboratorErr.Err.Error() != "" {
		return collaboratorErr.Err.Error()
	}
	return fmt.Sprintf("Unable to get exchange rate for %s to %s", currency, domain.BaseCurrency)
}
