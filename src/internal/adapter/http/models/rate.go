package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type RateResponse struct {
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
	Rate         decimal.Decimal `json:"rate"`
	FetchedAt    string          `json:"fetchedAt"`
}

func ValidateCurrency(currency string) error {
	trimmed := strings.TrimSpace(currency)
	if len(trimmed) != 3 || !lettersOnly(trimmed) {
		return errors.New("currency must be 3 letters")
	}
	return nil
}
