package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/google/uuid"
)

const customerServiceName = "Customer service"

var _ domain.CustomerVerifier = (*CustomerClient)(nil)

type CustomerClient struct {
	client *jsonClient
}

func NewCustomerClient(baseURL string, timeout time.Duration) *CustomerClient {
	return &CustomerClient{client: newJSONClient(customerServiceName, baseURL, timeout)}
}

type customerAPIResponse struct {
	Success bool             `json:"success"`
	Data    *customerAPIData `json:"data"`
	Message string           `json:"message"`
	Error   string           `json:"error"`
}

type customerAPIData struct {
	ID       uuid.UUID      `json:"id"`
	FullName string         `json:"fullName"`
	IsActive bool           `json:"isActive"`
	Status   customerStatus `json:"status"`
}

// customerStatus accepts both the enum name and its ordinal.
type customerStatus domain.CustomerStatus

var customerStatusOrdinals = []domain.CustomerStatus{
	domain.CustomerStatusActive,
	domain.CustomerStatusPassive,
	domain.CustomerStatusBlocked,
}

func (s *customerStatus) UnmarshalJSON(raw []byte) error {
	var ordinal int
	if err := json.Unmarshal(raw, &ordinal); err == nil {
		if ordinal < 0 || ordinal >= len(customerStatusOrdinals) {
			return fmt.Errorf("unknown customer status %d", ordinal)
		}
		*s = customerStatus(customerStatusOrdinals[ordinal])
		return nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return err
	}
	*s = customerStatus(strings.ToUpper(strings.TrimSpace(name)))
	return nil
}

func (c *CustomerClient) Verify(ctx context.Context, customerID uuid.UUID) (domain.CustomerVerification, error) {
	body, err := c.client.do(ctx, http.MethodGet, fmt.Sprintf("/api/customers/%s/verify", customerID), nil)

	var se *statusError
	if err != nil && !errors.As(err, &se) {
		logger.ErrorContext(ctx, "customer verification call failed", err, logger.Fields{
			"customerId": customerID.String(),
		})
		return domain.CustomerVerification{}, commons.NewCollaboratorError(customerServiceName, errors.New(describe(customerServiceName, err)))
	}
	if se != nil {
		body = se.Body
	}

	var apiResp customerAPIResponse
	decodeErr := json.Unmarshal(body, &apiResp)
	if err == nil && decodeErr == nil && apiResp.Success && apiResp.Data != nil {
		return domain.CustomerVerification{
			Success:    true,
			CustomerID: apiResp.Data.ID,
			FullName:   apiResp.Data.FullName,
			IsActive:   apiResp.Data.IsActive,
			Status:     domain.CustomerStatus(apiResp.Data.Status),
		}, nil
	}

	message := firstNonEmpty(apiResp.Message, apiResp.Error)
	if message == "" {
		if se != nil {
			message = fmt.Sprintf("Customer verification failed (%d)", se.StatusCode)
		} else {
			message = "Customer verification failed"
		}
	}

	logger.Warn("customer verification failed", logger.Fields{
		"customerId": customerID.String(),
		"message":    message,
	})

	return domain.CustomerVerification{
		Success:      false,
		CustomerID:   customerID,
		ErrorMessage: message,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
