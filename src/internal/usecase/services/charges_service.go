package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

var _ service_interfaces.ChargesService = (*ChargesService)(nil)

// FeeRate is the share of the TRY-equivalent amount charged per transfer.
var FeeRate = decimal.RequireFromString("0.01")

type ChargesService struct {
	rateService service_interfaces.RateService
	feeRate     decimal.Decimal
}

func NewChargesService(rateService service_interfaces.RateService) *ChargesService {
	return &ChargesService{
		rateService: rateService,
		feeRate:     FeeRate,
	}
}

// GetCharges returns the fee for a TRY-equivalent amount. No rounding is applied.
func (s *ChargesService) GetCharges(amountInTry decimal.Decimal) decimal.Decimal {
	return amountInTry.Mul(s.feeRate)
}

func (s *ChargesService) GetChargesSummary(ctx context.Context, req models.GetChargesRequest) (commons.Response[models.GetChargesResponse], error) {
	logger.Info("charges service get charges request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("charges service get charges validation failed", err, nil)
		return commons.ErrorResponse[models.GetChargesResponse](http.StatusBadRequest, "validation failed", err.Error()), commons.NewValidationError(err.Error())
	}

	amount := decimal.RequireFromString(strings.TrimSpace(req.Amount))
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	amountInTry, rate, err := s.rateService.ConvertToTry(ctx, amount, currency)
	if err != nil {
		return commons.ErrorResponse[models.GetChargesResponse](http.StatusBadRequest, "failed to get charges", err.Error()), err
	}

	tryEquivalent := amount
	if amountInTry != nil {
		tryEquivalent = *amountInTry
	}

	response := models.GetChargesResponse{
		Amount:           amount,
		Currency:         currency,
		ExchangeRate:     rate,
		AmountInTry:      tryEquivalent,
		Fee:              s.GetCharges(tryEquivalent),
		RequiresApproval: tryEquivalent.GreaterThan(HighValueThreshold),
	}

	logger.Info("charges service get charges success", logger.Fields{
		"amount":      response.Amount.String(),
		"currency":    response.Currency,
		"amountInTry": response.AmountInTry.String(),
		"fee":         response.Fee.String(),
	})

	return commons.SuccessResponse("charges fetched successfully", response), nil
}
