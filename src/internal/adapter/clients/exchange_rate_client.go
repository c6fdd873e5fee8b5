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
	"github.com/shopspring/decimal"
)

const exchangeRateServiceName = "Exchange rate service"

var _ domain.ExchangeRateProvider = (*ExchangeRateClient)(nil)

type ExchangeRateClient struct {
	client *jsonClient
	now    func() time.Time
}

func NewExchangeRateClient(baseURL string, timeout time.Duration) *ExchangeRateClient {
	return &ExchangeRateClient{
		client: newJSONClient(exchangeRateServiceName, baseURL, timeout),
		now:    time.Now,
	}
}

type exchangeRateAPIResponse struct {
	From            string           `json:"from"`
	To              string           `json:"to"`
	Rate            *decimal.Decimal `json:"rate"`
	Timestamp       *int64           `json:"timestamp"`
	ValidForSeconds *int             `json:"validForSeconds"`
}

type exchangeRateErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Supported []string `json:"supported"`
}

func (c *ExchangeRateClient) GetRate(ctx context.Context, fromCurrency string, toCurrency string) (domain.ExchangeRate, error) {
	from := strings.ToUpper(strings.TrimSpace(fromCurrency))
	to := strings.ToUpper(strings.TrimSpace(toCurrency))

	if from == to {
		return domain.ExchangeRate{
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         decimal.NewFromInt(1),
			FetchedAt:    c.now().UTC(),
		}, nil
	}

	body, err := c.client.do(ctx, http.MethodGet, fmt.Sprintf("/api/exchange/rate/%s/%s", from, to), nil)
	if err != nil {
		var se *statusError
		if !errors.As(err, &se) {
			logger.ErrorContext(ctx, "exchange rate call failed", err, logger.Fields{
				"fromCurrency": from,
				"toCurrency":   to,
			})
			return domain.ExchangeRate{}, commons.NewCollaboratorError(exchangeRateServiceName, errors.New(describe(exchangeRateServiceName, err)))
		}

		var errResp exchangeRateErrorResponse
		_ = json.Unmarshal(se.Body, &errResp)
		message := firstNonEmpty(errResp.Message, errResp.Error)
		if message == "" {
			message = fmt.Sprintf("Exchange rate service error (%d)", se.StatusCode)
		}
		logger.Warn("exchange rate service returned an error", logger.Fields{
			"fromCurrency": from,
			"toCurrency":   to,
			"message":      message,
		})
		return domain.ExchangeRate{}, commons.NewCollaboratorError(exchangeRateServiceName, errors.New(message))
	}

	var resp exchangeRateAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ExchangeRate{}, commons.NewCollaboratorError(exchangeRateServiceName, fmt.Errorf("malformed response: %w", err))
	}
	if resp.Rate == nil || resp.Rate.LessThanOrEqual(decimal.Zero) {
		return domain.ExchangeRate{}, commons.NewCollaboratorError(exchangeRateServiceName, errors.New("rate must be greater than zero"))
	}

	fetchedAt := c.now().UTC()
	if resp.Timestamp != nil {
		fetchedAt = time.Unix(*resp.Timestamp, 0).UTC()
	}

	return domain.ExchangeRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         *resp.Rate,
		FetchedAt:    fetchedAt,
	}, nil
}
