package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	transactionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	TransactionCodeLength   = 8
)

var alphabetSize = big.NewInt(int64(len(transactionCodeAlphabet)))

// NewTransactionCode returns a code that avoids look-alike characters (0/O, 1/I).
func NewTransactionCode() (string, error) {
	code := make([]byte, TransactionCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		code[i] = transactionCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func NormalizeTransactionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
