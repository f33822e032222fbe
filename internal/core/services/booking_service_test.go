package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/wellness_booking/internal/core/availability"
	"github.com/srgjo27/wellness_booking/internal/core/domain"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
	"github.com/srgjo27/wellness_booking/internal/core/ports/mocks"
	"github.com/srgjo27/wellness_booking/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	service     *services.BookingService
	serviceRepo *mocks.ServiceRepository
	bookingRepo *mocks.BookingRepository
	paymentRepo *mocks.PaymentRepository
	gateway     *mocks.PaymentGateway
	publisher   *mocks.EventPublisher
	idempotency *mocks.IdempotencyStore
}

func newBookingFixture(t *testing.T, cfg services.BookingConfig) *bookingFixture {
	f := &bookingFixture{
		serviceRepo: mocks.NewServiceRepository(t),
		bookingRepo: mocks.NewBookingRepository(t),
		paymentRepo: mocks.NewPaymentRepository(t),
		gateway:     mocks.NewPaymentGateway(t),
		publisher:   mocks.NewEventPublisher(t),
		idempotency: mocks.NewIdempotencyStore(t),
	}

	clock := fixedClock{now: testNow}
	avail := services.NewAvailabilityService(f.serviceRepo, f.bookingRepo, availability.DefaultPolicy(), clock)

	f.service = services.NewBookingService(services.BookingDeps{
		Services:     f.serviceRepo,
		Bookings:     f.bookingRepo,
		Payments:     f.paymentRepo,
		Gateway:      f.gateway,
		Publisher:    f.publisher,
		Idempotency:  f.idempotency,
		Availability: avail,
		Clock:        clock,
		Logger:       discardLogger(),
	}, cfg)

	return f
}

func commitRequest(serviceID uuid.UUID, at string) services.CommitBookingRequest {
	return services.CommitBookingRequest{
		ServiceID:       serviceID.String(),
		Date:            "2026-10-14",
		Time:            at,
		PaymentMethodID: "pm_card_visa",
	}
}

func (f *bookingFixture) expectOpenDay(offering *domain.Service, existing []domain.Booking) {
	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)
	f.bookingRepo.On("ListActiveByServiceBetween", mock.Anything, offering.ID, mock.Anything, mock.Anything).Return(existing, nil)
}

func TestCommitBooking_FreeServiceSkipsPayment(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)
	userID := uuid.New()

	f.expectOpenDay(offering, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything,
		mock.MatchedBy(func(b *domain.Booking) bool { return b.PaymentID == nil && b.Status == domain.BookingBooked }),
		(*domain.Payment)(nil),
	).Return(nil)
	f.publisher.On("Publish", mock.Anything, services.EventBookingCreated, mock.AnythingOfType("string"), mock.Anything).Return(nil)

	req := commitRequest(offering.ID, "10:00")
	req.PaymentMethodID = ""

	booking, err := f.service.CommitBooking(context.Background(), userID, req)

	require.NoError(t, err)
	assert.Nil(t, booking.PaymentID)
	assert.Equal(t, domain.BookingBooked, booking.Status)
	assert.Equal(t, userID, booking.UserID)
	assert.Equal(t, time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC), booking.AppointedAt)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestCommitBooking_PaidServiceAttachesPayment(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req ports.ChargeRequest) bool {
		return req.Amount == 4500 && req.Currency == "usd" && req.PaymentMethodID == "pm_card_visa" && req.IdempotencyKey != ""
	})).Return(&ports.ChargeResult{ProviderRef: "pi_123", Status: domain.PaymentSucceeded}, nil)

	var stored *domain.Payment
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.AnythingOfType("*domain.Booking"), mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*domain.Payment) }).
		Return(nil)
	f.publisher.On("Publish", mock.Anything, services.EventBookingCreated, mock.Anything, mock.Anything).Return(nil)

	booking, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "9:00 AM"))

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.BookingBooked, booking.Status)
	assert.Equal(t, &stored.ID, booking.PaymentID)
	assert.Equal(t, "pi_123", stored.ProviderRef)
	assert.Equal(t, int64(4500), booking.Price)
}

func TestCommitBooking_UnsettledPaymentLeavesBookingPending(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(&ports.ChargeResult{ProviderRef: "pi_456", Status: domain.PaymentPending}, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, services.EventBookingCreated, mock.Anything, mock.Anything).Return(nil)

	booking, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "11:00"))

	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, booking.Status)
}

func TestCommitBooking_PaymentRequired(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)

	req := commitRequest(offering.ID, "10:00")
	req.PaymentMethodID = ""

	booking, err := f.service.CommitBooking(context.Background(), uuid.New(), req)

	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
	assert.Nil(t, booking)
	f.bookingRepo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitBooking_PaymentCancelledByUser(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, domain.ErrPaymentCancelled)

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrPaymentCancelled)
	assert.NotErrorIs(t, err, domain.ErrPaymentFailed)
	f.bookingRepo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitBooking_GatewayErrorIsPaymentFailure(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, errors.New("tls handshake timeout"))

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
}

func TestCommitBooking_SlotTakenSinceRender(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, []domain.Booking{
		{ID: uuid.New(), ServiceID: offering.ID, AppointedAt: tod(10, 0).On(wednesday), Status: domain.BookingBooked},
	})

	booking, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)
	assert.Nil(t, booking)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestCommitBooking_ConcurrentWriterWinsAndChargeIsRefunded(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(&ports.ChargeResult{ProviderRef: "pi_789", Status: domain.PaymentSucceeded}, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrSlotNoLongerAvailable)
	f.gateway.On("Refund", mock.Anything, "pi_789", mock.AnythingOfType("string")).Return(nil)

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitBooking_FreeServiceConcurrentWriterWins(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)

	f.expectOpenDay(offering, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrSlotNoLongerAvailable)

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)
}

func TestCommitBooking_OrphanedPaymentSurfacesSupportID(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(&ports.ChargeResult{ProviderRef: "pi_orphan", Status: domain.PaymentSucceeded}, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset by peer"))
	f.gateway.On("Refund", mock.Anything, "pi_orphan", mock.Anything).Return(errors.New("stripe unavailable"))

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "pi_orphan", perr.PaymentRef)
	assert.Contains(t, err.Error(), "pi_orphan")
}

func TestCommitBooking_RejectsStaleSelections(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)

	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)

	cases := map[string]services.CommitBookingRequest{
		"today":          {ServiceID: offering.ID.String(), Date: "2026-10-13", Time: "10:00"},
		"inactive day":   {ServiceID: offering.ID.String(), Date: "2026-10-15", Time: "10:00"},
		"beyond horizon": {ServiceID: offering.ID.String(), Date: "2026-10-21", Time: "10:00"},
		"off-grid time":  {ServiceID: offering.ID.String(), Date: "2026-10-14", Time: "10:30"},
		"after closing":  {ServiceID: offering.ID.String(), Date: "2026-10-14", Time: "12:00"},
		"bad date":       {ServiceID: offering.ID.String(), Date: "tomorrow", Time: "10:00"},
		"bad service":    {ServiceID: "not-a-uuid", Date: "2026-10-14", Time: "10:00"},
	}

	for name, req := range cases {
		_, err := f.service.CommitBooking(context.Background(), uuid.New(), req)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
}

func TestCommitBooking_InactiveService(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)
	offering.Active = false

	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCommitBooking_TimesOut(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{CommitTimeout: 20 * time.Millisecond})
	offering := yogaService(4500)

	f.expectOpenDay(offering, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, _ ports.ChargeRequest) (*ports.ChargeResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)

	_, err := f.service.CommitBooking(context.Background(), uuid.New(), commitRequest(offering.ID, "10:00"))

	assert.ErrorIs(t, err, domain.ErrCommitTimeout)
}

func TestCommitBooking_IdempotentReplay(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)
	userID := uuid.New()
	existing := &domain.Booking{
		ID:          uuid.New(),
		ServiceID:   offering.ID,
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingBooked,
	}

	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)
	f.idempotency.On("Reserve", mock.Anything, userID.String()+":retry-1", 24*time.Hour).Return(existing.ID.String(), false, nil)
	f.bookingRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	req := commitRequest(offering.ID, "10:00")
	req.IdempotencyKey = "retry-1"

	booking, err := f.service.CommitBooking(context.Background(), userID, req)

	require.NoError(t, err)
	assert.Equal(t, existing, booking)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestCommitBooking_ReusedKeyForAnotherSlotIsRejected(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)
	userID := uuid.New()
	existing := &domain.Booking{
		ID:          uuid.New(),
		ServiceID:   offering.ID,
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingBooked,
	}

	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)
	f.idempotency.On("Reserve", mock.Anything, userID.String()+":retry-1", mock.Anything).Return(existing.ID.String(), false, nil)
	f.bookingRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	req := commitRequest(offering.ID, "14:00")
	req.IdempotencyKey = "retry-1"

	booking, err := f.service.CommitBooking(context.Background(), userID, req)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, booking)
	f.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	f.idempotency.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestCommitBooking_IdempotencyKeyReleasedOnFailure(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(4500)
	userID := uuid.New()
	key := userID.String() + ":retry-2"

	f.expectOpenDay(offering, nil)
	f.idempotency.On("Reserve", mock.Anything, key, mock.Anything).Return("", true, nil)
	f.gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, domain.ErrPaymentFailed)
	f.idempotency.On("Release", mock.Anything, key).Return(nil)

	req := commitRequest(offering.ID, "10:00")
	req.IdempotencyKey = "retry-2"

	_, err := f.service.CommitBooking(context.Background(), userID, req)

	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	f.idempotency.AssertCalled(t, "Release", mock.Anything, key)
	f.idempotency.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCommitBooking_IdempotencyKeyCompletedOnSuccess(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)
	userID := uuid.New()
	key := userID.String() + ":first"

	f.expectOpenDay(offering, nil)
	f.idempotency.On("Reserve", mock.Anything, key, mock.Anything).Return("", true, nil)
	f.bookingRepo.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.idempotency.On("Complete", mock.Anything, key, mock.AnythingOfType("string"), 24*time.Hour).Return(nil)
	f.publisher.On("Publish", mock.Anything, services.EventBookingCreated, mock.Anything, mock.Anything).Return(nil)

	req := commitRequest(offering.ID, "10:00")
	req.IdempotencyKey = "first"

	_, err := f.service.CommitBooking(context.Background(), userID, req)

	require.NoError(t, err)
}

func TestCommitBooking_ConcurrentRetryInFlight(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)
	userID := uuid.New()

	f.serviceRepo.On("GetByID", mock.Anything, offering.ID).Return(offering, nil)
	f.idempotency.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return("", false, nil)

	req := commitRequest(offering.ID, "10:00")
	req.IdempotencyKey = "double-tap"

	_, err := f.service.CommitBooking(context.Background(), userID, req)

	assert.ErrorIs(t, err, domain.ErrCommitInProgress)
}

func TestCheckSlot_SameAnswerWithoutStateChange(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	offering := yogaService(0)
	ctx := context.Background()

	f.expectOpenDay(offering, []domain.Booking{
		{AppointedAt: tod(10, 0).On(wednesday), Status: domain.BookingPending},
	})

	free := commitRequest(offering.ID, "09:00")
	taken := commitRequest(offering.ID, "10:00")

	assert.NoError(t, f.service.CheckSlot(ctx, free))
	assert.NoError(t, f.service.CheckSlot(ctx, free))

	first := f.service.CheckSlot(ctx, taken)
	second := f.service.CheckSlot(ctx, taken)
	assert.ErrorIs(t, first, domain.ErrSlotNoLongerAvailable)
	assert.ErrorIs(t, second, domain.ErrSlotNoLongerAvailable)

	f.bookingRepo.AssertNumberOfCalls(t, "ListActiveByServiceBetween", 4)
}

func TestCancelBooking_RefundsSettledPayment(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	userID := uuid.New()
	paymentID := uuid.New()
	booking := &domain.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingBooked,
		PaymentID:   &paymentID,
	}

	f.bookingRepo.On("GetByID", ctx, booking.ID).Return(booking, nil)
	f.bookingRepo.On("UpdateStatus", ctx, booking.ID, domain.BookingBooked, domain.BookingCancelled).Return(nil)
	f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_1", Status: domain.PaymentSucceeded}, nil)
	f.gateway.On("Refund", ctx, "pi_1", "cancel-"+booking.ID.String()).Return(nil)
	f.paymentRepo.On("UpdateStatus", ctx, paymentID, domain.PaymentRefunded).Return(nil)
	f.publisher.On("Publish", ctx, services.EventBookingCancelled, booking.ID.String(), mock.Anything).Return(nil)

	cancelled, err := f.service.CancelBooking(ctx, userID, booking.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
}

func TestCancelBooking_VoidsUnsettledPayment(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	userID := uuid.New()
	paymentID := uuid.New()
	booking := &domain.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingPending,
		PaymentID:   &paymentID,
	}

	f.bookingRepo.On("GetByID", ctx, booking.ID).Return(booking, nil)
	f.bookingRepo.On("UpdateStatus", ctx, booking.ID, domain.BookingPending, domain.BookingCancelled).Return(nil)
	f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_3ds", Status: domain.PaymentPending}, nil)
	f.gateway.On("Cancel", ctx, "pi_3ds").Return(nil)
	f.paymentRepo.On("UpdateStatus", ctx, paymentID, domain.PaymentCancelled).Return(nil)
	f.publisher.On("Publish", ctx, services.EventBookingCancelled, booking.ID.String(), mock.Anything).Return(nil)

	cancelled, err := f.service.CancelBooking(ctx, userID, booking.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	f.gateway.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_RefundsChargeThatSettledBeforeVoid(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	userID := uuid.New()
	paymentID := uuid.New()
	booking := &domain.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingPending,
		PaymentID:   &paymentID,
	}

	f.bookingRepo.On("GetByID", ctx, booking.ID).Return(booking, nil)
	f.bookingRepo.On("UpdateStatus", ctx, booking.ID, domain.BookingPending, domain.BookingCancelled).Return(nil)
	f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_late", Status: domain.PaymentPending}, nil)
	f.gateway.On("Cancel", ctx, "pi_late").Return(domain.ErrPaymentSettled)
	f.gateway.On("Refund", ctx, "pi_late", "cancel-"+booking.ID.String()).Return(nil)
	f.paymentRepo.On("UpdateStatus", ctx, paymentID, domain.PaymentRefunded).Return(nil)
	f.publisher.On("Publish", ctx, services.EventBookingCancelled, booking.ID.String(), mock.Anything).Return(nil)

	_, err := f.service.CancelBooking(ctx, userID, booking.ID)

	require.NoError(t, err)
}

func TestCancelBooking_FailedRefundCarriesPaymentRef(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	userID := uuid.New()
	paymentID := uuid.New()
	booking := &domain.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		AppointedAt: tod(10, 0).On(wednesday),
		Status:      domain.BookingBooked,
		PaymentID:   &paymentID,
	}

	f.bookingRepo.On("GetByID", ctx, booking.ID).Return(booking, nil)
	f.bookingRepo.On("UpdateStatus", ctx, booking.ID, domain.BookingBooked, domain.BookingCancelled).Return(nil)
	f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_stuck", Status: domain.PaymentSucceeded}, nil)
	f.gateway.On("Refund", ctx, "pi_stuck", "cancel-"+booking.ID.String()).Return(errors.New("stripe unavailable"))
	f.publisher.On("Publish", ctx, services.EventBookingCancelled, booking.ID.String(), mock.Anything).Return(nil)

	cancelled, err := f.service.CancelBooking(ctx, userID, booking.ID)

	assert.Nil(t, cancelled)
	var refundErr *domain.RefundError
	require.ErrorAs(t, err, &refundErr)
	assert.Equal(t, "pi_stuck", refundErr.PaymentRef)
	assert.Equal(t, domain.BookingCancelled, booking.Status)
	f.paymentRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_Rules(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	owner := uuid.New()

	past := &domain.Booking{ID: uuid.New(), UserID: owner, AppointedAt: testNow.Add(-time.Hour), Status: domain.BookingBooked}
	done := &domain.Booking{ID: uuid.New(), UserID: owner, AppointedAt: testNow.Add(48 * time.Hour), Status: domain.BookingCompleted}

	f.bookingRepo.On("GetByID", ctx, past.ID).Return(past, nil)
	f.bookingRepo.On("GetByID", ctx, done.ID).Return(done, nil)

	_, err := f.service.CancelBooking(ctx, uuid.New(), past.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.service.CancelBooking(ctx, owner, past.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.service.CancelBooking(ctx, owner, done.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompleteBooking_OnlyOwningProvider(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{})
	ctx := context.Background()
	offering := yogaService(0)
	booking := &domain.Booking{ID: uuid.New(), ServiceID: offering.ID, Status: domain.BookingBooked}

	f.bookingRepo.On("GetByID", ctx, booking.ID).Return(booking, nil)
	f.serviceRepo.On("GetByID", ctx, offering.ID).Return(offering, nil)

	_, err := f.service.CompleteBooking(ctx, uuid.New(), booking.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.bookingRepo.On("UpdateStatus", ctx, booking.ID, domain.BookingBooked, domain.BookingCompleted).Return(nil)
	f.publisher.On("Publish", ctx, services.EventBookingCompleted, booking.ID.String(), mock.Anything).Return(nil)

	completed, err := f.service.CompleteBooking(ctx, offering.ProviderID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, completed.Status)
}

func TestSweep_ExpiresPendingAndCompletesElapsed(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{PendingTTL: 15 * time.Minute})
	ctx := context.Background()
	stale := uuid.New()
	elapsed := uuid.New()

	f.bookingRepo.On("GetStalePending", ctx, testNow.Add(-15*time.Minute), 100).Return([]uuid.UUID{stale}, nil)
	f.bookingRepo.On("GetElapsedBooked", ctx, testNow.Add(-time.Hour), 100).Return([]uuid.UUID{elapsed}, nil)
	f.bookingRepo.On("GetByID", ctx, stale).Return(&domain.Booking{ID: stale, Status: domain.BookingPending}, nil)
	f.bookingRepo.On("UpdateStatus", ctx, stale, domain.BookingPending, domain.BookingCancelled).Return(nil)
	f.bookingRepo.On("UpdateStatus", ctx, elapsed, domain.BookingBooked, domain.BookingCompleted).Return(errors.New("deadlock detected"))
	f.publisher.On("Publish", ctx, services.EventBookingCancelled, stale.String(), mock.Anything).Return(nil)

	f.service.Sweep(ctx)

	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestSweep_PendingPayment(t *testing.T) {
	tests := []struct {
		name         string
		cancelErr    error
		paymentAfter domain.PaymentStatus
		bookingAfter domain.BookingStatus
		event        string
	}{
		{"voided", nil, domain.PaymentCancelled, domain.BookingCancelled, services.EventBookingCancelled},
		{"settled late", domain.ErrPaymentSettled, domain.PaymentSucceeded, domain.BookingBooked, services.EventBookingConfirmed},
		{"processor outage", errors.New("stripe unavailable"), "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t, services.BookingConfig{PendingTTL: 15 * time.Minute})
			ctx := context.Background()
			stale := uuid.New()
			paymentID := uuid.New()

			f.bookingRepo.On("GetStalePending", ctx, mock.Anything, 100).Return([]uuid.UUID{stale}, nil)
			f.bookingRepo.On("GetElapsedBooked", ctx, mock.Anything, 100).Return(nil, nil)
			f.bookingRepo.On("GetByID", ctx, stale).Return(&domain.Booking{ID: stale, Status: domain.BookingPending, PaymentID: &paymentID}, nil)
			f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_open", Status: domain.PaymentPending}, nil)
			f.gateway.On("Cancel", ctx, "pi_open").Return(tt.cancelErr)
			if tt.paymentAfter != "" {
				f.paymentRepo.On("UpdateStatus", ctx, paymentID, tt.paymentAfter).Return(nil)
				f.bookingRepo.On("UpdateStatus", ctx, stale, domain.BookingPending, tt.bookingAfter).Return(nil)
				f.publisher.On("Publish", ctx, tt.event, stale.String(), mock.Anything).Return(nil)
			}

			f.service.Sweep(ctx)

			if tt.paymentAfter == "" {
				f.bookingRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				f.paymentRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
				f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSweep_ConfirmsAlreadySettledPayment(t *testing.T) {
	f := newBookingFixture(t, services.BookingConfig{PendingTTL: 15 * time.Minute})
	ctx := context.Background()
	stale := uuid.New()
	paymentID := uuid.New()

	f.bookingRepo.On("GetStalePending", ctx, mock.Anything, 100).Return([]uuid.UUID{stale}, nil)
	f.bookingRepo.On("GetElapsedBooked", ctx, mock.Anything, 100).Return(nil, nil)
	f.bookingRepo.On("GetByID", ctx, stale).Return(&domain.Booking{ID: stale, Status: domain.BookingPending, PaymentID: &paymentID}, nil)
	f.paymentRepo.On("GetByID", ctx, paymentID).Return(&domain.Payment{ID: paymentID, ProviderRef: "pi_paid", Status: domain.PaymentSucceeded}, nil)
	f.bookingRepo.On("UpdateStatus", ctx, stale, domain.BookingPending, domain.BookingBooked).Return(nil)
	f.publisher.On("Publish", ctx, services.EventBookingConfirmed, stale.String(), mock.Anything).Return(nil)

	f.service.Sweep(ctx)

	f.gateway.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
