package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/shopspring/decimal"
)

type RateService interface {
	GetRate(ctx context.Context, currency string) (commons.Response[models.RateResponse], error)
	ConvertToTry(ctx context.Context, amount decimal.Decimal, currency string) (*decimal.Decimal, *decimal.Decimal, error)
}
