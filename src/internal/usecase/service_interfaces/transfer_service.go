package service_interfaces

import (
	"context"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/google/uuid"
)

type TransferService interface {
	CreateTransfer(ctx context.Context, req models.CreateTransferRequest) (commons.Response[models.TransferResponse], error)
	GetTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error)
	GetTransferByCode(ctx context.Context, code string) (commons.Response[models.TransferResponse], error)
	CompleteTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error)
	CancelTransfer(ctx context.Context, id uuid.UUID) (commons.Response[models.TransferResponse], error)
	GetDailyTotal(ctx context.Context, customerID uuid.UUID) (commons.Response[models.DailyTotalResponse], error)
	CancelPendingForBlockedCustomer(ctx context.Context, customerID uuid.UUID) (commons.Response[models.CustomerBlockedResponse], error)
	ProcessExpiredApprovals(ctx context.Context) (int, error)
}
