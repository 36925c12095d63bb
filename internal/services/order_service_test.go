package services

import (
	"testing"
	"time"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStoreID = int64(1)
	testUserID  = int64(10)
)

var testNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

type orderServiceFixture struct {
	svc        *orderService
	orderRepo  *fakeOrderRepo
	clientRepo *fakeClientRepo
	outboxRepo *fakeOutboxRepo
	tx         *fakeTxRunner
}

func newOrderServiceFixture(orders []*models.WorkOrder, clients ...*models.Client) *orderServiceFixture {
	orderRepo := newFakeOrderRepo(orders...)
	clientRepo := newFakeClientRepo(clients...)
	outboxRepo := &fakeOutboxRepo{}
	txRunner := &fakeTxRunner{}
	svc := &orderService{
		orderRepo:  orderRepo,
		clientRepo: clientRepo,
		userRepo:   newFakeUserRepo(map[int64]int64{testUserID: testStoreID}),
		seqRepo:    newFakeSequenceRepo(),
		outboxRepo: outboxRepo,
		tx:         txRunner,
		now:        func() time.Time { return testNow },
	}
	return &orderServiceFixture{svc: svc, orderRepo: orderRepo, clientRepo: clientRepo, outboxRepo: outboxRepo, tx: txRunner}
}

func testClient(id int64, visits int, spent float64) *models.Client {
	phone := "+77001234567"
	return &models.Client{
		ID:         id,
		StoreID:    testStoreID,
		FullName:   "Aset Nurlanov",
		Phone:      &phone,
		VisitCount: visits,
		TotalSpent: spent,
		Tag:        RecomputeTier(visits, spent),
		IsActive:   true,
	}
}

func testOrder(id int64, clientID int64, status string) *models.WorkOrder {
	return &models.WorkOrder{
		ID:             id,
		StoreID:        testStoreID,
		Code:           "OT-20250309-001",
		ClientID:       clientID,
		CreatedByID:    testUserID,
		Device:         "iPhone 12",
		ReportedFault:  "cracked screen",
		Status:         status,
		WarrantyStatus: WarrantyNone,
		IsActive:       true,
		CreatedAt:      testNow.AddDate(0, 0, -1),
	}
}

func TestCreateOrderAssignsSequentialCodes(t *testing.T) {
	fx := newOrderServiceFixture(nil, testClient(1, 0, 0))

	req := CreateOrderRequest{ClientID: 1, Device: "iPhone 12", ReportedFault: "cracked screen"}

	first, err := fx.svc.CreateOrder(testStoreID, testUserID, req)
	require.NoError(t, err)
	second, err := fx.svc.CreateOrder(testStoreID, testUserID, req)
	require.NoError(t, err)

	assert.Equal(t, "OT-20250310-001", first.Code)
	assert.Equal(t, "OT-20250310-002", second.Code)
	assert.Equal(t, StatusReceived, first.Status)
	assert.Equal(t, WarrantyNone, first.WarrantyStatus)

	// Each intake counts as one visit.
	assert.Equal(t, 2, fx.clientRepo.clients[1].VisitCount)
}

func TestCreateOrderUnknownClient(t *testing.T) {
	fx := newOrderServiceFixture(nil)

	_, err := fx.svc.CreateOrder(testStoreID, testUserID, CreateOrderRequest{
		ClientID: 99, Device: "laptop", ReportedFault: "no power",
	})
	require.ErrorIs(t, err, ErrClientNotFound)
	assert.Empty(t, fx.orderRepo.orders, "no order may exist when intake fails")
}

func TestCreateOrderRejectsForeignActor(t *testing.T) {
	fx := newOrderServiceFixture(nil, testClient(1, 0, 0))

	_, err := fx.svc.CreateOrder(testStoreID, int64(999), CreateOrderRequest{
		ClientID: 1, Device: "laptop", ReportedFault: "no power",
	})
	require.ErrorIs(t, err, ErrUnknownActor)
	assert.Empty(t, fx.orderRepo.orders)
}

func TestTransitionOrderActivatesWarranty(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	days := 30
	price := 12000.0
	order.WarrantyDays = &days
	order.AgreedPrice = &price
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	updated, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.NoError(t, err)

	assert.Equal(t, StatusDelivered, updated.Status)
	assert.Equal(t, WarrantyActive, updated.WarrantyStatus)
	require.NotNil(t, updated.WarrantyExpires)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *updated.WarrantyExpires)

	require.Len(t, fx.orderRepo.statusLogs, 1)
	entry := fx.orderRepo.statusLogs[0]
	assert.Equal(t, StatusReadyForPickup, entry.FromStatus)
	assert.Equal(t, StatusDelivered, entry.ToStatus)
	assert.Equal(t, testUserID, entry.UserID)
}

func TestTransitionOrderWithoutWarrantyDays(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	updated, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.NoError(t, err)

	assert.Equal(t, WarrantyNone, updated.WarrantyStatus)
	assert.Nil(t, updated.WarrantyExpires)
}

func TestTransitionOrderTerminalRejected(t *testing.T) {
	order := testOrder(1, 1, StatusDelivered)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusReceived})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, fx.orderRepo.statusLogs, "rejected transition must not append to the log")
	assert.Equal(t, StatusDelivered, fx.orderRepo.orders[1].Status)
}

func TestTransitionOrderNotRepairableIsTerminal(t *testing.T) {
	order := testOrder(1, 1, StatusNotRepairable)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusInReview})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeliverySettlesClientTier(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	price := 49900.0
	order.AgreedPrice = &price
	// Client already has 100 spent: 49900 more crosses the VIP spend line.
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 2, 100))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.NoError(t, err)

	client := fx.clientRepo.clients[1]
	assert.Equal(t, 50000.0, client.TotalSpent)
	assert.Equal(t, TierVIP, client.Tag)
}

func TestDeliveryWithoutAgreedPriceKeepsSpend(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 3, 500))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.NoError(t, err)

	client := fx.clientRepo.clients[1]
	assert.Equal(t, 500.0, client.TotalSpent)
	assert.Equal(t, TierFrequent, client.Tag)
}

func TestTransitionOrderReadsUnderRowLock(t *testing.T) {
	order := testOrder(1, 1, StatusReceived)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusInReview})
	require.NoError(t, err)

	// The transition must validate against a locked read, so two concurrent
	// deliveries cannot both pass validation on the same stale status.
	assert.Equal(t, 1, fx.orderRepo.lockedReads)
}

func TestTransitionFailureMidUnitLeavesNoTrace(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	days := 30
	price := 8000.0
	order.WarrantyDays = &days
	order.AgreedPrice = &price
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 2, 100))
	fx.orderRepo.statusLogErr = repositories.ErrDatabaseError
	fx.tx.snapshot = fx.orderRepo.snapshotState

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.ErrorIs(t, err, repositories.ErrDatabaseError)

	// The status update, warranty activation and log append are one unit: a
	// failed log append rolls all of them back.
	stored := fx.orderRepo.orders[1]
	assert.Equal(t, StatusReadyForPickup, stored.Status)
	assert.Equal(t, WarrantyNone, stored.WarrantyStatus)
	assert.Nil(t, stored.WarrantyExpires)
	assert.Empty(t, fx.orderRepo.statusLogs)

	// Post-commit side effects must not have run.
	client := fx.clientRepo.clients[1]
	assert.Equal(t, 100.0, client.TotalSpent)
	assert.Empty(t, fx.clientRepo.spendUpdateTags)
	assert.Empty(t, fx.outboxRepo.messages)
}

func TestTierFailureDoesNotRollBackDelivery(t *testing.T) {
	order := testOrder(1, 1, StatusReadyForPickup)
	price := 8000.0
	order.AgreedPrice = &price
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))
	fx.clientRepo.spendUpdateErr = repositories.ErrDatabaseError

	updated, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusDelivered})
	require.NoError(t, err, "tier settlement failure is logged, never raised")

	assert.Equal(t, StatusDelivered, updated.Status)
	require.Len(t, fx.orderRepo.statusLogs, 1)
}

func TestTransitionEnqueuesNotification(t *testing.T) {
	order := testOrder(1, 1, StatusReceived)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusInReview})
	require.NoError(t, err)

	require.Len(t, fx.outboxRepo.messages, 1)
	msg := fx.outboxRepo.messages[0]
	assert.Equal(t, "+77001234567", msg.Phone)
	assert.Contains(t, msg.Body, order.Code)
	assert.NotEmpty(t, msg.ID)
}

func TestTransitionSkipsNotificationWithoutPhone(t *testing.T) {
	order := testOrder(1, 1, StatusReceived)
	client := testClient(1, 1, 0)
	client.Phone = nil
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, client)

	_, err := fx.svc.TransitionOrder(testStoreID, 1, testUserID, TransitionRequest{ToStatus: StatusInReview})
	require.NoError(t, err)
	assert.Empty(t, fx.outboxRepo.messages)
}

func TestUpdateOrderWarrantyLockedAfterDelivery(t *testing.T) {
	order := testOrder(1, 1, StatusDelivered)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	days := 90
	_, err := fx.svc.UpdateOrder(testStoreID, 1, testUserID, UpdateOrderRequest{WarrantyDays: &days})
	require.ErrorIs(t, err, ErrWarrantyLocked)

	// Other fields stay editable on a delivered order.
	fault := "screen replaced, battery swollen"
	updated, err := fx.svc.UpdateOrder(testStoreID, 1, testUserID, UpdateOrderRequest{ReportedFault: &fault})
	require.NoError(t, err)
	assert.Equal(t, fault, updated.ReportedFault)
}

func TestRateOrderRequiresDelivered(t *testing.T) {
	fx := newOrderServiceFixture([]*models.WorkOrder{
		testOrder(1, 1, StatusInRepair),
		testOrder(2, 1, StatusDelivered),
	}, testClient(1, 1, 0))
	fx.orderRepo.orders[2].Code = "OT-20250309-002"

	_, err := fx.svc.RateOrder(testStoreID, 1, RateOrderRequest{Score: 5})
	require.ErrorIs(t, err, ErrValidation)

	rating, err := fx.svc.RateOrder(testStoreID, 2, RateOrderRequest{Score: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Score)

	// Second rating on the same order is rejected.
	_, err = fx.svc.RateOrder(testStoreID, 2, RateOrderRequest{Score: 1})
	require.ErrorIs(t, err, ErrAlreadyRated)
}

func TestTrackOrderByCode(t *testing.T) {
	order := testOrder(1, 1, StatusInRepair)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	tracked, err := fx.svc.TrackOrderByCode("OT-20250309-001")
	require.NoError(t, err)
	assert.Equal(t, StatusInRepair, tracked.Status)

	_, err = fx.svc.TrackOrderByCode("OT-19990101-001")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrderHidesFromQueries(t *testing.T) {
	order := testOrder(1, 1, StatusReceived)
	fx := newOrderServiceFixture([]*models.WorkOrder{order}, testClient(1, 1, 0))

	require.NoError(t, fx.svc.DeleteOrder(testStoreID, 1))

	_, err := fx.svc.GetOrderByID(testStoreID, 1)
	require.ErrorIs(t, err, ErrOrderNotFound)

	require.ErrorIs(t, fx.svc.DeleteOrder(testStoreID, 1), ErrOrderNotFound)
}

func TestFormatOrderCode(t *testing.T) {
	day := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "OT-20250105-001", formatOrderCode(day, 1))
	assert.Equal(t, "OT-20250105-042", formatOrderCode(day, 42))
	assert.Equal(t, "OT-20250105-1000", formatOrderCode(day, 1000))
}
