package domain

import (
	"context"

	"github.com/google/uuid"
)

type CustomerStatus string

const (
	CustomerStatusActive  CustomerStatus = "ACTIVE"
	CustomerStatusPassive CustomerStatus = "PASSIVE"
	CustomerStatusBlocked CustomerStatus = "BLOCKED"
)

type CustomerVerification struct {
	Success      bool
	CustomerID   uuid.UUID
	FullName     string
	IsActive     bool
	Status       CustomerStatus
	ErrorMessage string
}

// CustomerVerifier looks a customer up in the customer service. A lookup the
// service answered negatively comes back with Success=false; transport
// failures come back as an error.
type CustomerVerifier interface {
	Verify(ctx context.Context, customerID uuid.UUID) (CustomerVerification, error)
}
