package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/shopspring/decimal"
)

type ChargesService interface {
	GetChargesSummary(ctx context.Context, req models.GetChargesRequest) (commons.Response[models.GetChargesResponse], error)
	GetCharges(amountInTry decimal.Decimal) decimal.Decimal
}
