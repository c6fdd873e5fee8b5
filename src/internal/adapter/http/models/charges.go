package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type GetChargesRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (r GetChargesRequest) Validate() error {
	var errs []string

	amount := strings.TrimSpace(r.Amount)
	if amount == "" {
		errs = append(errs, "amount is required")
	} else {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			errs = append(errs, "amount must be numeric")
		} else if parsed.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, "amount must be greater than zero")
		}
	}

	if err := ValidateCurrency(r.Currency); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type GetChargesResponse struct {
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
	AmountInTry      decimal.Decimal  `json:"amountInTry"`
	Fee              decimal.Decimal  `json:"fee"`
	RequiresApproval bool             `json:"requiresApproval"`
}
