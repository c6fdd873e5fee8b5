package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/shopspring/decimal"
)

const fraudServiceName = "Fraud service"

var _ domain.FraudChecker = (*FraudClient)(nil)

// FraudClient never fails a transfer on its own: any problem reaching the
// fraud service is reported as MEDIUM risk with ServiceError set.
type FraudClient struct {
	client *jsonClient
}

func NewFraudClient(baseURL string, timeout time.Duration) *FraudClient {
	return &FraudClient{client: newJSONClient(fraudServiceName, baseURL, timeout)}
}

type fraudCheckAPIRequest struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	ToUserID      string          `json:"toUserId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

type fraudAPIResponse struct {
	Success bool             `json:"success"`
	Data    *fraudAPIData    `json:"data"`
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Details []fraudAPIDetail `json:"details"`
}

type fraudAPIData struct {
	TransactionID  string   `json:"transactionId"`
	RiskLevel      string   `json:"riskLevel"`
	Reason         string   `json:"reason"`
	RiskFactors    []string `json:"riskFactors"`
	Recommendation string   `json:"recommendation"`
}

type fraudAPIDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (c *FraudClient) Check(ctx context.Context, req domain.FraudCheckRequest) (domain.FraudCheckResult, error) {
	payload := fraudCheckAPIRequest{
		TransactionID: req.TransferID.String(),
		UserID:        req.SenderID.String(),
		ToUserID:      req.ReceiverID.String(),
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
	}

	body, err := c.client.do(ctx, http.MethodPost, "/api/fraud/check", payload)

	var se *statusError
	if err != nil && !errors.As(err, &se) {
		logger.ErrorContext(ctx, "fraud check call failed", err, logger.Fields{
			"transferId": req.TransferID.String(),
		})
		return degraded(describe(fraudServiceName, err)), nil
	}
	if se != nil {
		body = se.Body
	}

	var resp fraudAPIResponse
	decodeErr := json.Unmarshal(body, &resp)
	if err == nil && decodeErr == nil && resp.Success && resp.Data != nil {
		return domain.FraudCheckResult{
			RiskLevel:      mapRiskLevel(resp.Data.RiskLevel),
			Reason:         resp.Data.Reason,
			RiskFactors:    resp.Data.RiskFactors,
			Recommendation: resp.Data.Recommendation,
		}, nil
	}

	message := firstNonEmpty(resp.Error, resp.Message)
	if details := detailMessages(resp.Details); details != "" {
		message = details
	}
	if message == "" {
		message = "Fraud check failed"
	}

	logger.Warn("fraud service returned an error", logger.Fields{
		"transferId": req.TransferID.String(),
		"message":    message,
	})
	return degraded(message), nil
}

func degraded(reason string) domain.FraudCheckResult {
	return domain.FraudCheckResult{
		RiskLevel:    domain.RiskLevelMedium,
		Reason:       reason,
		ServiceError: true,
	}
}

func mapRiskLevel(level string) domain.RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "LOW":
		return domain.RiskLevelLow
	case "HIGH":
		return domain.RiskLevelHigh
	default:
		return domain.RiskLevelMedium
	}
}

func detailMessages(details []fraudAPIDetail) string {
	messages := make([]string, 0, len(details))
	for _, d := range details {
		if strings.TrimSpace(d.Message) != "" {
			messages = append(messages, d.Message)
		}
	}
	return strings.Join(messages, "; ")
}
