package domain

import "errors"

var ErrRecordNotFound = errors.New("Record not found")
var ErrDuplicateTransactionCode = errors.New("Transaction code already in use")
var ErrInvalidTransition = errors.New("Invalid transfer status transition")
