package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/go-chi/chi/v5"
)

type RateService interface {
	GetRate(ctx context.Context, currency string) (commons.Response[models.RateResponse], error)
}

type RateController struct {
	service RateService
}

func NewRateController(service RateService) *RateController {
	return &RateController{service: service}
}

func (c *RateController) RegisterRoutes(r chi.Router) {
	r.Get("/api/rates/{currency}", c.getRate)
}

func (c *RateController) getRate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetRate(r.Context(), chi.URLParam(r, "currency"))
	respond(w, r, response, err, start)
}
