package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/go-chi/chi/v5"
)

type ChargesService interface {
	GetChargesSummary(ctx context.Context, req models.GetChargesRequest) (commons.Response[models.GetChargesResponse], error)
}

type ChargesController struct {
	service ChargesService
}

func NewChargesController(service ChargesService) *ChargesController {
	return &ChargesController{service: service}
}

func (c *ChargesController) RegisterRoutes(r chi.Router) {
	r.Get("/api/charges", c.getCharges)
}

func (c *ChargesController) getCharges(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := models.GetChargesRequest{
		Amount:   r.URL.Query().Get("amount"),
		Currency: r.URL.Query().Get("currency"),
	}
	logRequest(r, req)

	response, err := c.service.GetChargesSummary(r.Context(), req)
	respond(w, r, response, err, start)
}
