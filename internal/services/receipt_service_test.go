package services

import (
	"testing"

	"fixpoint_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receiptServiceFixture struct {
	svc         *receiptService
	receiptRepo *fakeReceiptRepo
	itemRepo    *fakeItemRepo
}

func newReceiptServiceFixture(items ...*models.Item) *receiptServiceFixture {
	receiptRepo := newFakeReceiptRepo()
	itemRepo := newFakeItemRepo(items...)
	svc := &receiptService{
		receiptRepo: receiptRepo,
		itemRepo:    itemRepo,
		userRepo:    newFakeUserRepo(map[int64]int64{testUserID: testStoreID}),
		seqRepo:     newFakeSequenceRepo(),
		tx:          &fakeTxRunner{},
	}
	return &receiptServiceFixture{svc: svc, receiptRepo: receiptRepo, itemRepo: itemRepo}
}

func testItem(id int64, name string, price float64, stock int) *models.Item {
	return &models.Item{
		ID:        id,
		StoreID:   testStoreID,
		Name:      name,
		SalePrice: price,
		Stock:     stock,
		IsActive:  true,
	}
}

func TestCreateReceiptTotals(t *testing.T) {
	fx := newReceiptServiceFixture(
		testItem(1, "screen protector", 100, 10),
		testItem(2, "usb cable", 50, 10),
	)

	receipt, warnings, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod:  PaymentCard,
		CommissionRate: 10,
		Lines: []ReceiptLineRequest{
			{ItemID: 1, Quantity: 2},
			{ItemID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "REC-001", receipt.Number)
	assert.Equal(t, ReceiptPending, receipt.Status)
	assert.Equal(t, 250.0, receipt.Subtotal)
	assert.Equal(t, 25.0, receipt.CommissionAmount)
	assert.Equal(t, 225.0, receipt.Total)

	require.Len(t, receipt.Items, 2)
	assert.Equal(t, "screen protector", receipt.Items[0].ItemName)
	assert.Equal(t, 100.0, receipt.Items[0].UnitPrice)
	assert.Equal(t, 200.0, receipt.Items[0].LineTotal)

	assert.Equal(t, 8, fx.itemRepo.items[1].Stock)
	assert.Equal(t, 9, fx.itemRepo.items[2].Stock)
}

func TestCreateReceiptSequentialNumbers(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 100))

	req := CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 1}},
	}
	first, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, req)
	require.NoError(t, err)
	second, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, req)
	require.NoError(t, err)

	assert.Equal(t, "REC-001", first.Number)
	assert.Equal(t, "REC-002", second.Number)
}

func TestCreateReceiptNegativeStockWarning(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "battery", 300, 1))

	receipt, warnings, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 3}},
	})
	require.NoError(t, err, "negative stock is advisory, never blocking")

	require.Len(t, warnings, 1)
	assert.Equal(t, int64(1), warnings[0].ItemID)
	assert.Equal(t, -2, warnings[0].NewStock)
	assert.Equal(t, 900.0, receipt.Subtotal)
	assert.Equal(t, -2, fx.itemRepo.items[1].Stock)
}

func TestCreateReceiptRejectsEmptyLines(t *testing.T) {
	fx := newReceiptServiceFixture()

	_, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateReceiptRejectsUnknownPaymentMethod(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 10))

	_, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: "crypto",
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCreateReceiptRejectsZeroQuantity(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 10))

	_, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateReceiptUnknownItem(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 10))

	_, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 42, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, fx.receiptRepo.receipts)
}

func TestDeleteReceiptReturnsStock(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "battery", 300, 10))

	receipt, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 7, fx.itemRepo.items[1].Stock)

	require.NoError(t, fx.svc.DeleteReceipt(testStoreID, receipt.ID))

	assert.Equal(t, 10, fx.itemRepo.items[1].Stock, "deletion must return exactly the sold quantity")
	assert.Empty(t, fx.receiptRepo.receipts)
	assert.Empty(t, fx.receiptRepo.lines[receipt.ID])
}

func TestUpdateReceiptStatusOnlyFromPending(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 10))

	receipt, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	completed, err := fx.svc.UpdateReceiptStatus(testStoreID, receipt.ID, UpdateReceiptStatusRequest{Status: ReceiptCompleted})
	require.NoError(t, err)
	assert.Equal(t, ReceiptCompleted, completed.Status)

	_, err = fx.svc.UpdateReceiptStatus(testStoreID, receipt.ID, UpdateReceiptStatusRequest{Status: ReceiptCancelled})
	require.ErrorIs(t, err, ErrInvalidReceiptStatus, "completed is final")
}

func TestArchiveReceiptKeepsStock(t *testing.T) {
	fx := newReceiptServiceFixture(testItem(1, "usb cable", 50, 10))

	receipt, _, err := fx.svc.CreateReceipt(testStoreID, testUserID, CreateReceiptRequest{
		PaymentMethod: PaymentCash,
		Lines:         []ReceiptLineRequest{{ItemID: 1, Quantity: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.ArchiveReceipt(testStoreID, receipt.ID))
	assert.Equal(t, 6, fx.itemRepo.items[1].Stock, "archiving must not touch stock")

	require.ErrorIs(t, fx.svc.ArchiveReceipt(testStoreID, receipt.ID), ErrReceiptNotFound)
}

func TestCalcReceiptTotals(t *testing.T) {
	tests := []struct {
		name           string
		lineTotals     []float64
		rate           float64
		wantSubtotal   float64
		wantCommission float64
		wantTotal      float64
	}{
		{name: "no commission", lineTotals: []float64{100, 50}, rate: 0, wantSubtotal: 150, wantCommission: 0, wantTotal: 150},
		{name: "ten percent", lineTotals: []float64{200, 50}, rate: 10, wantSubtotal: 250, wantCommission: 25, wantTotal: 225},
		{name: "full commission", lineTotals: []float64{80}, rate: 100, wantSubtotal: 80, wantCommission: 80, wantTotal: 0},
		{name: "no lines", lineTotals: nil, rate: 15, wantSubtotal: 0, wantCommission: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, commission, total := calcReceiptTotals(tt.lineTotals, tt.rate)
			assert.Equal(t, tt.wantSubtotal, subtotal)
			assert.Equal(t, tt.wantCommission, commission)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
