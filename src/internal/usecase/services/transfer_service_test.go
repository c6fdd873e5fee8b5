package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/memory"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	ledger    *memory.TransferLedger
	customers customerVerifierStub
	rates     rateProviderStub
	fraud     fraudCheckerStub
	now       time.Time
}

func newFixture() *fixture {
	return &fixture{ledger: memory.NewTransferLedger(), now: testNow}
}

func (f *fixture) service() *services.TransferService {
	return f.serviceOn(f.ledger)
}

func (f *fixture) serviceOn(ledger domain.TransferLedger) *services.TransferService {
	rateService := services.NewRateService(f.rates)
	return services.NewTransferService(
		ledger,
		f.customers,
		f.fraud,
		rateService,
		services.NewChargesService(rateService),
		services.NewCustomerLocker(),
	).WithClock(fixedClock(f.now))
}

func request(sender, receiver uuid.UUID, amount string, currency string) models.CreateTransferRequest {
	return models.CreateTransferRequest{
		SenderCustomerID:   sender.String(),
		ReceiverCustomerID: receiver.String(),
		Amount:             decimal.RequireFromString(amount),
		Currency:           currency,
	}
}

func seedTransfer(t *testing.T, ledger *memory.TransferLedger, transfer domain.Transfer) domain.Transfer {
	t.Helper()
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	if transfer.TransactionCode == "" {
		code, err := domain.NewTransactionCode()
		require.NoError(t, err)
		transfer.TransactionCode = code
	}
	if transfer.Currency == "" {
		transfer.Currency = domain.BaseCurrency
	}
	saved, err := ledger.Add(context.Background(), transfer)
	require.NoError(t, err)
	return saved
}

func requireValidation(t *testing.T, err error, contains string) {
	t.Helper()
	var validationErr *commons.ValidationError
	require.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
	assert.Contains(t, validationErr.Error(), contains)
}

func TestTransferServiceCreateHighValueTransferAwaitsApproval(t *testing.T) {
	f := newFixture()
	sender, receiver := uuid.New(), uuid.New()

	resp, err := f.service().CreateTransfer(context.Background(), request(sender, receiver, "15000", "TRY"))
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	assert.Equal(t, string(domain.TransferStatusAwaitingApproval), resp.Data.Status)
	assert.True(t, resp.Data.Fee.Equal(decimal.NewFromInt(150)))
	assert.Nil(t, resp.Data.AmountInTry)
	assert.Nil(t, resp.Data.ExchangeRate)
	require.NotNil(t, resp.Data.RiskLevel)
	assert.Equal(t, "LOW", *resp.Data.RiskLevel)
	assert.Len(t, resp.Data.TransactionCode, domain.TransactionCodeLength)

	stored, err := f.ledger.GetByID(context.Background(), uuid.MustParse(resp.Data.ID))
	require.NoError(t, err)
	require.NotNil(t, stored.ApprovalDueAt)
	assert.Equal(t, stored.CreatedAt.Add(services.ApprovalWindow), *stored.ApprovalDueAt)
}

func TestTransferServiceCreateStatusFollowsThreshold(t *testing.T) {
	cases := []struct {
		amount string
		status domain.TransferStatus
	}{
		{"9999.99", domain.TransferStatusPending},
		{"10000", domain.TransferStatusPending},
		{"10000.01", domain.TransferStatusAwaitingApproval},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			f := newFixture()
			resp, err := f.service().CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), tc.amount, "TRY"))
			require.NoError(t, err)
			assert.Equal(t, string(tc.status), resp.Data.Status)

			stored, err := f.ledger.GetByID(context.Background(), uuid.MustParse(resp.Data.ID))
			require.NoError(t, err)
			if tc.status == domain.TransferStatusPending {
				assert.Nil(t, stored.ApprovalDueAt)
			} else {
				assert.NotNil(t, stored.ApprovalDueAt)
			}
		})
	}
}

func TestTransferServiceCreateFeeIsOnePercentWithoutRounding(t *testing.T) {
	f := newFixture()
	f.rates = rateProviderStub{
		getRateFn: func(_ context.Context, from string, to string) (domain.ExchangeRate, error) {
			assert.Equal(t, "TRY", from)
			assert.Equal(t, "USD", to)
			return domain.ExchangeRate{FromCurrency: from, ToCurrency: to, Rate: decimal.RequireFromString("32.4567")}, nil
		},
	}

	resp, err := f.service().CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "12.34", "usd"))
	require.NoError(t, err)

	expectedTry := decimal.RequireFromString("12.34").Mul(decimal.RequireFromString("32.4567"))
	require.NotNil(t, resp.Data.AmountInTry)
	assert.True(t, resp.Data.AmountInTry.Equal(expectedTry))
	assert.True(t, resp.Data.Fee.Equal(expectedTry.Mul(decimal.RequireFromString("0.01"))))
	assert.Equal(t, "4.00515678", resp.Data.Fee.String())
	assert.Equal(t, "USD", resp.Data.Currency)
	require.NotNil(t, resp.Data.ExchangeRate)
	assert.Equal(t, "32.4567", resp.Data.ExchangeRate.String())
}

func TestTransferServiceCreateRejectsWhenDailyLimitExceeded(t *testing.T) {
	f := newFixture()
	sender := uuid.New()
	seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   sender,
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(48000),
		Status:             domain.TransferStatusCompleted,
		CreatedAt:          testNow.Add(-time.Hour),
	})

	_, err := f.service().CreateTransfer(context.Background(), request(sender, uuid.New(), "3000", "TRY"))
	requireValidation(t, err, "Daily transfer limit exceeded. Current: 48,000.00 TRY, Limit: 50,000.00 TRY")

	active, err := f.ledger.GetActiveBySender(context.Background(), sender)
	require.NoError(t, err)
	assert.Empty(t, active)
	total, err := f.ledger.SumDailyTotal(context.Background(), sender, testNow)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(48000)))
}

func TestTransferServiceCreateIgnoresCancelledAndFailedInDailyTotal(t *testing.T) {
	f := newFixture()
	sender := uuid.New()
	for _, status := range []domain.TransferStatus{domain.TransferStatusCancelled, domain.TransferStatusFailed} {
		seedTransfer(t, f.ledger, domain.Transfer{
			SenderCustomerID:   sender,
			ReceiverCustomerID: uuid.New(),
			Amount:             decimal.NewFromInt(45000),
			Status:             status,
			CreatedAt:          testNow,
		})
	}

	_, err := f.service().CreateTransfer(context.Background(), request(sender, uuid.New(), "5000", "TRY"))
	require.NoError(t, err)
}

func TestTransferServiceCreateAllowsExactlyTheDailyLimit(t *testing.T) {
	f := newFixture()
	sender := uuid.New()
	seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   sender,
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(45000),
		Status:             domain.TransferStatusPending,
		CreatedAt:          testNow,
	})

	_, err := f.service().CreateTransfer(context.Background(), request(sender, uuid.New(), "5000", "TRY"))
	require.NoError(t, err)
}

func TestTransferServiceCreateHighRiskPersistsFailedRecord(t *testing.T) {
	f := newFixture()
	sender, receiver := uuid.New(), uuid.New()

	var checked domain.FraudCheckRequest
	f.fraud = fraudCheckerStub{
		checkFn: func(_ context.Context, req domain.FraudCheckRequest) (domain.FraudCheckResult, error) {
			checked = req
			return domain.FraudCheckResult{RiskLevel: domain.RiskLevelHigh, Reason: "velocity"}, nil
		},
	}

	resp, err := f.service().CreateTransfer(context.Background(), request(sender, receiver, "15000", "TRY"))
	requireValidation(t, err, "Transfer rejected due to high risk: velocity")
	assert.False(t, resp.Success)

	assert.Equal(t, sender, checked.SenderID)
	assert.Equal(t, receiver, checked.ReceiverID)
	assert.Equal(t, "TRY", checked.Currency)
	assert.True(t, checked.Amount.Equal(decimal.NewFromInt(15000)))

	stored, err := f.ledger.GetByID(context.Background(), checked.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusFailed, stored.Status)
	require.NotNil(t, stored.RiskLevel)
	assert.Equal(t, domain.RiskLevelHigh, *stored.RiskLevel)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "High risk transfer rejected: velocity", *stored.FailureReason)
	assert.Nil(t, stored.ApprovalDueAt)

	total, err := f.ledger.SumDailyTotal(context.Background(), sender, testNow)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestTransferServiceCreateFraudFailureDegradesToMedium(t *testing.T) {
	f := newFixture()
	f.fraud = fraudCheckerStub{
		checkFn: func(context.Context, domain.FraudCheckRequest) (domain.FraudCheckResult, error) {
			return domain.FraudCheckResult{}, errors.New("connection refused")
		},
	}

	resp, err := f.service().CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "100", "TRY"))
	require.NoError(t, err)
	require.NotNil(t, resp.Data.RiskLevel)
	assert.Equal(t, "MEDIUM", *resp.Data.RiskLevel)
	assert.Equal(t, string(domain.TransferStatusPending), resp.Data.Status)
}

func TestTransferServiceCreateVerificationFailures(t *testing.T) {
	sender, receiver := uuid.New(), uuid.New()

	cases := []struct {
		name     string
		verify   func(ctx context.Context, id uuid.UUID) (domain.CustomerVerification, error)
		expected string
	}{
		{
			name: "sender lookup failed",
			verify: func(_ context.Context, id uuid.UUID) (domain.CustomerVerification, error) {
				if id == sender {
					return domain.CustomerVerification{Success: false}, nil
				}
				return domain.CustomerVerification{Success: true, IsActive: true}, nil
			},
			expected: "Sender customer not found or inactive",
		},
		{
			name: "sender inactive",
			verify: func(_ context.Context, id uuid.UUID) (domain.CustomerVerification, error) {
				return domain.CustomerVerification{Success: true, IsActive: id != sender}, nil
			},
			expected: "Sender customer is not active",
		},
		{
			name: "receiver inactive",
			verify: func(_ context.Context, id uuid.UUID) (domain.CustomerVerification, error) {
				return domain.CustomerVerification{Success: true, IsActive: id != receiver}, nil
			},
			expected: "Receiver customer is not active",
		},
		{
			name: "collaborator unavailable",
			verify: func(context.Context, uuid.UUID) (domain.CustomerVerification, error) {
				return domain.CustomerVerification{}, commons.NewCollaboratorError("Customer service", errors.New("Customer service timeout"))
			},
			expected: "Customer service timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.customers = customerVerifierStub{verifyFn: tc.verify}

			_, err := f.service().CreateTransfer(context.Background(), request(sender, receiver, "100", "TRY"))
			requireValidation(t, err, tc.expected)

			active, listErr := f.ledger.GetActiveByCustomer(context.Background(), sender)
			require.NoError(t, listErr)
			assert.Empty(t, active)
		})
	}
}

func TestTransferServiceCreateRateFailure(t *testing.T) {
	f := newFixture()
	f.rates = rateProviderStub{
		getRateFn: func(context.Context, string, string) (domain.ExchangeRate, error) {
			return domain.ExchangeRate{}, errors.New("boom")
		},
	}

	_, err := f.service().CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "100", "EUR"))
	requireValidation(t, err, "Unable to get exchange rate for EUR to TRY")
}

func TestTransferServiceCreateSkipsRateLookupForTry(t *testing.T) {
	f := newFixture()
	f.rates = rateProviderStub{
		getRateFn: func(context.Context, string, string) (domain.ExchangeRate, error) {
			t.Fatal("rate lookup must not happen for TRY")
			return domain.ExchangeRate{}, nil
		},
	}

	_, err := f.service().CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "100", "try"))
	require.NoError(t, err)
}

func TestTransferServiceCreateValidatesRequest(t *testing.T) {
	f := newFixture()
	same := uuid.New()

	_, err := f.service().CreateTransfer(context.Background(), models.CreateTransferRequest{
		SenderCustomerID:   same.String(),
		ReceiverCustomerID: same.String(),
		Amount:             decimal.Zero,
		Currency:           "US",
	})
	requireValidation(t, err, "amount must be greater than zero")
	assert.Contains(t, err.Error(), "cannot be the same")
	assert.Contains(t, err.Error(), "currency must be 3 letters")
}

func TestTransferServiceCreateRetriesOnCodeCollision(t *testing.T) {
	f := newFixture()
	existing := seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   uuid.New(),
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(10),
		Status:             domain.TransferStatusPending,
		CreatedAt:          testNow,
	})

	codes := []string{existing.TransactionCode, "NEWCODE2"}
	calls := 0
	svc := f.service().WithCodeGenerator(func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	})

	resp, err := svc.CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "100", "TRY"))
	require.NoError(t, err)
	assert.Equal(t, "NEWCODE2", resp.Data.TransactionCode)
	assert.Equal(t, 2, calls)
}

func TestTransferServiceCreateConcurrentSenderNeverExceedsLimit(t *testing.T) {
	f := newFixture()
	svc := f.service()
	sender := uuid.New()

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateTransfer(context.Background(), request(sender, uuid.New(), "6000", "TRY"))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var validationErr *commons.ValidationError
			if errors.As(err, &validationErr) && strings.Contains(err.Error(), "Daily transfer limit exceeded") {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, succeeded)
	assert.Equal(t, attempts-8, rejected)

	total, err := f.ledger.SumDailyTotal(context.Background(), sender, testNow)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(48000)))
}

func TestTransferServiceLookupByCodeMatchesLookupByID(t *testing.T) {
	f := newFixture()
	svc := f.service()

	created, err := svc.CreateTransfer(context.Background(), request(uuid.New(), uuid.New(), "250.75", "TRY"))
	require.NoError(t, err)

	id := uuid.MustParse(created.Data.ID)
	byID, err := svc.GetTransfer(context.Background(), id)
	require.NoError(t, err)

	byCode, err := svc.GetTransferByCode(context.Background(), strings.ToLower(created.Data.TransactionCode))
	require.NoError(t, err)
	assert.Equal(t, *byID.Data, *byCode.Data)
}

func TestTransferServiceGetTransferNotFound(t *testing.T) {
	f := newFixture()
	id := uuid.New()

	resp, err := f.service().GetTransfer(context.Background(), id)
	var notFound *commons.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Transfer with id '"+id.String()+"' was not found.", err.Error())

	_, err = f.service().GetTransferByCode(context.Background(), "NOPE1234")
	require.True(t, errors.As(err, &notFound))
}

func TestTransferServiceCompleteTransfer(t *testing.T) {
	f := newFixture()
	pending := seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   uuid.New(),
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(100),
		Status:             domain.TransferStatusPending,
		CreatedAt:          testNow,
	})
	cancelled := seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   uuid.New(),
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(100),
		Status:             domain.TransferStatusCancelled,
		CreatedAt:          testNow,
	})
	svc := f.service()

	resp, err := svc.CompleteTransfer(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.TransferStatusCompleted), resp.Data.Status)
	require.NotNil(t, resp.Data.CompletedAt)

	stored, err := f.ledger.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, testNow, *stored.CompletedAt)

	_, err = svc.CompleteTransfer(context.Background(), cancelled.ID)
	requireValidation(t, err, "Transfer cannot be completed. Current status: CANCELLED")

	_, err = svc.CompleteTransfer(context.Background(), uuid.New())
	var notFound *commons.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestTransferServiceCancelTransfer(t *testing.T) {
	f := newFixture()
	dueAt := testNow.Add(time.Minute)
	awaiting := seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   uuid.New(),
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(20000),
		Status:             domain.TransferStatusAwaitingApproval,
		ApprovalDueAt:      &dueAt,
		CreatedAt:          testNow,
	})
	svc := f.service()

	resp, err := svc.CancelTransfer(context.Background(), awaiting.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transfer cancelled successfully. Fee has been refunded.", resp.Message)
	assert.Equal(t, string(domain.TransferStatusCancelled), resp.Data.Status)
	assert.True(t, resp.Data.FeeRefunded)
	require.NotNil(t, resp.Data.FailureReason)
	assert.Equal(t, "Cancelled by user", *resp.Data.FailureReason)
	assert.Nil(t, resp.Data.ApprovalDueAt)

	_, err = svc.CancelTransfer(context.Background(), awaiting.ID)
	requireValidation(t, err, "Transfer cannot be cancelled. Current status: CANCELLED")
}

func TestTransferServiceGetDailyTotal(t *testing.T) {
	f := newFixture()
	customer := uuid.New()
	amountInTry := decimal.RequireFromString("3250.5")
	seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   customer,
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(100),
		Currency:           "USD",
		AmountInTry:        &amountInTry,
		Status:             domain.TransferStatusPending,
		CreatedAt:          testNow,
	})
	seedTransfer(t, f.ledger, domain.Transfer{
		SenderCustomerID:   customer,
		ReceiverCustomerID: uuid.New(),
		Amount:             decimal.NewFromInt(1000),
		Status:             domain.TransferStatusCompleted,
		CreatedAt:          testNow.AddDate(0, 0, -1),
	})

	resp, err := f.service().GetDailyTotal(context.Background(), customer)
	require.NoError(t, err)
	assert.True(t, resp.Data.TotalAmount.Equal(amountInTry))
	assert.True(t, resp.Data.RemainingLimit.Equal(decimal.RequireFromString("46749.5")))
	assert.Equal(t, "2024-05-14", resp.Data.Date)
}

func TestTransferServiceGetDailyTotalUnknownCustomer(t *testing.T) {
	f := newFixture()
	f.customers = customerVerifierStub{
		verifyFn: func(context.Context, uuid.UUID) (domain.CustomerVerification, error) {
			return domain.CustomerVerification{Success: false, ErrorMessage: "Customer not found"}, nil
		},
	}
	customer := uuid.New()

	_, err := f.service().GetDailyTotal(context.Background(), customer)
	var notFound *commons.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Customer", notFound.Entity)
}

func TestTransferServiceCancelPendingForBlockedCustomer(t *testing.T) {
	f := newFixture()
	blocked := uuid.New()
	other := uuid.New()

	asSender := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: blocked, ReceiverCustomerID: other, Amount: decimal.NewFromInt(1), Status: domain.TransferStatusPending, CreatedAt: testNow})
	asReceiver := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: other, ReceiverCustomerID: blocked, Amount: decimal.NewFromInt(1), Status: domain.TransferStatusAwaitingApproval, CreatedAt: testNow})
	completed := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: blocked, ReceiverCustomerID: other, Amount: decimal.NewFromInt(1), Status: domain.TransferStatusCompleted, CreatedAt: testNow})
	unrelated := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: other, ReceiverCustomerID: uuid.New(), Amount: decimal.NewFromInt(1), Status: domain.TransferStatusPending, CreatedAt: testNow})

	resp, err := f.service().CancelPendingForBlockedCustomer(context.Background(), blocked)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Data.CancelledTransfers)

	for _, id := range []uuid.UUID{asSender.ID, asReceiver.ID} {
		stored, err := f.ledger.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.TransferStatusCancelled, stored.Status)
		require.NotNil(t, stored.FailureReason)
		assert.Equal(t, "Customer blocked", *stored.FailureReason)
	}

	stored, err := f.ledger.GetByID(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, stored.Status)

	stored, err = f.ledger.GetByID(context.Background(), unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPending, stored.Status)
}

func TestTransferServiceProcessExpiredApprovals(t *testing.T) {
	f := newFixture()
	past := testNow.Add(-time.Second)
	future := testNow.Add(time.Minute)

	expired := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: uuid.New(), ReceiverCustomerID: uuid.New(), Amount: decimal.NewFromInt(20000), Status: domain.TransferStatusAwaitingApproval, ApprovalDueAt: &past, CreatedAt: testNow.Add(-5 * time.Minute)})
	open := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: uuid.New(), ReceiverCustomerID: uuid.New(), Amount: decimal.NewFromInt(20000), Status: domain.TransferStatusAwaitingApproval, ApprovalDueAt: &future, CreatedAt: testNow})

	released, err := f.service().ProcessExpiredApprovals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	stored, err := f.ledger.GetByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusPending, stored.Status)
	assert.Nil(t, stored.ApprovalDueAt)

	stored, err = f.ledger.GetByID(context.Background(), open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusAwaitingApproval, stored.Status)
	require.NotNil(t, stored.ApprovalDueAt)
	assert.Equal(t, future, *stored.ApprovalDueAt)
}

// interleavedLedger runs onList once, right after a listing query returns, so
// another request lands between the listing and the write that follows it.
type interleavedLedger struct {
	*memory.TransferLedger
	onList func()
	once   sync.Once
}

func (l *interleavedLedger) GetExpiredApprovals(ctx context.Context, now time.Time) ([]domain.Transfer, error) {
	transfers, err := l.TransferLedger.GetExpiredApprovals(ctx, now)
	l.once.Do(l.onList)
	return transfers, err
}

func (l *interleavedLedger) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Transfer, error) {
	transfers, err := l.TransferLedger.GetActiveByCustomer(ctx, customerID)
	l.once.Do(l.onList)
	return transfers, err
}

func TestTransferServiceExpiredApprovalSweepKeepsCompletionMadeAfterListing(t *testing.T) {
	f := newFixture()
	past := testNow.Add(-time.Second)
	expired := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: uuid.New(), ReceiverCustomerID: uuid.New(), Amount: decimal.NewFromInt(20000), Status: domain.TransferStatusAwaitingApproval, ApprovalDueAt: &past, CreatedAt: testNow.Add(-5 * time.Minute)})

	ledger := &interleavedLedger{TransferLedger: f.ledger}
	svc := f.serviceOn(ledger)
	ledger.onList = func() {
		_, err := svc.CompleteTransfer(context.Background(), expired.ID)
		assert.NoError(t, err)
	}

	released, err := svc.ProcessExpiredApprovals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	stored, err := f.ledger.GetByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, testNow, *stored.CompletedAt)
}

func TestTransferServiceBlockedCustomerKeepsCancellationMadeAfterListing(t *testing.T) {
	f := newFixture()
	blocked := uuid.New()
	pending := seedTransfer(t, f.ledger, domain.Transfer{SenderCustomerID: blocked, ReceiverCustomerID: uuid.New(), Amount: decimal.NewFromInt(1), Status: domain.TransferStatusPending, CreatedAt: testNow})

	ledger := &interleavedLedger{TransferLedger: f.ledger}
	svc := f.serviceOn(ledger)
	ledger.onList = func() {
		_, err := svc.CancelTransfer(context.Background(), pending.ID)
		assert.NoError(t, err)
	}

	resp, err := svc.CancelPendingForBlockedCustomer(context.Background(), blocked)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Data.CancelledTransfers)

	stored, err := f.ledger.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCancelled, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "Cancelled by user", *stored.FailureReason)
}
