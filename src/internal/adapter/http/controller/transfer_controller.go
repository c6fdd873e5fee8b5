package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/go-chi/chi/v5"
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
}

type TransferController struct {
	service TransferService
}

func NewTransferController(service TransferService) *TransferController {
	return &TransferController{service: service}
}

func (c *TransferController) RegisterRoutes(r chi.Router) {
	r.Route("/api/transfers", func(r chi.Router) {
		r.Post("/", c.create)
		r.Post("/customer-blocked", c.customerBlocked)
		r.Get("/by-code/{code}", c.getByCode)
		r.Get("/customer/{customerId}/daily-total", c.dailyTotal)
		r.Get("/{id}", c.getByID)
		r.Post("/{id}/complete", c.complete)
		r.Post("/{id}/cancel", c.cancel)
	})
}

func (c *TransferController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		reject[models.TransferResponse](w, r, http.StatusBadRequest, start, "invalid request body", err.Error())
		return
	}
	logRequest(r, req)

	response, err := c.service.CreateTransfer(r.Context(), req)
	if err == nil {
		response.Status = http.StatusCreated
		writeJSON(w, http.StatusCreated, response)
		logResponse(r, http.StatusCreated, response, start)
		return
	}
	respond(w, r, response, err, start)
}

func (c *TransferController) getByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id, ok := parseID(w, r, "id", start)
	if !ok {
		return
	}
	response, err := c.service.GetTransfer(r.Context(), id)
	respond(w, r, response, err, start)
}

func (c *TransferController) getByCode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetTransferByCode(r.Context(), chi.URLParam(r, "code"))
	respond(w, r, response, err, start)
}

func (c *TransferController) complete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id, ok := parseID(w, r, "id", start)
	if !ok {
		return
	}
	response, err := c.service.CompleteTransfer(r.Context(), id)
	respond(w, r, response, err, start)
}

func (c *TransferController) cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id, ok := parseID(w, r, "id", start)
	if !ok {
		return
	}
	response, err := c.service.CancelTransfer(r.Context(), id)
	respond(w, r, response, err, start)
}

func (c *TransferController) dailyTotal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	customerID, ok := parseID(w, r, "customerId", start)
	if !ok {
		return
	}
	response, err := c.service.GetDailyTotal(r.Context(), customerID)
	respond(w, r, response, err, start)
}

func (c *TransferController) customerBlocked(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CustomerBlockedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		reject[models.CustomerBlockedResponse](w, r, http.StatusBadRequest, start, "invalid request body", err.Error())
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		reject[models.CustomerBlockedResponse](w, r, http.StatusBadRequest, start, "validation failed", err.Error())
		return
	}

	response, err := c.service.CancelPendingForBlockedCustomer(r.Context(), uuid.MustParse(req.CustomerID))
	respond(w, r, response, err, start)
}

func parseID(w http.ResponseWriter, r *http.Request, param string, start time.Time) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		reject[models.TransferResponse](w, r, http.StatusBadRequest, start, "validation failed", param+" must be a valid id")
		return uuid.Nil, false
	}
	return id, true
}
