package services

import (
	"fmt"
	"time"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
)

// In-memory fakes for the repository interfaces. Every mutation happens
// immediately; the fake tx runner just invokes the function. Tests that inject
// a failure mid-transaction set a snapshot so the fakes' in-place mutations
// are reverted the way a real rollback would revert them.

type fakeTxRunner struct {
	beginErr error
	snapshot func() (restore func())
}

func (f *fakeTxRunner) WithinTx(fn func(tx repositories.SQLExecutor) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	var restore func()
	if f.snapshot != nil {
		restore = f.snapshot()
	}
	if err := fn(nil); err != nil {
		if restore != nil {
			restore()
		}
		return err
	}
	return nil
}

// --- users ---

type fakeUserRepo struct {
	members map[int64]int64 // userID -> storeID
}

func newFakeUserRepo(members map[int64]int64) *fakeUserRepo {
	return &fakeUserRepo{members: members}
}

func (f *fakeUserRepo) CreateStore(_ repositories.SQLExecutor, store *models.Store) (int64, error) {
	store.ID = 1
	return 1, nil
}

func (f *fakeUserRepo) GetStoreByID(int64) (*models.Store, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) CreateUser(_ repositories.SQLExecutor, user *models.User, _ string) (int64, error) {
	user.ID = 1
	return 1, nil
}

func (f *fakeUserRepo) FindUserByUsername(string) (*models.User, string, error) {
	return nil, "", repositories.ErrNotFound
}

func (f *fakeUserRepo) FindUserByID(int64) (*models.User, error) {
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) IsActiveStoreMember(_ repositories.SQLExecutor, userID, storeID int64) (bool, error) {
	return f.members[userID] == storeID, nil
}

// --- clients ---

type fakeClientRepo struct {
	clients         map[int64]*models.Client
	spendUpdateErr  error
	spendUpdateTags []string // tags written by UpdateSpendAndTag, in order
}

func newFakeClientRepo(clients ...*models.Client) *fakeClientRepo {
	m := make(map[int64]*models.Client)
	for _, c := range clients {
		m[c.ID] = c
	}
	return &fakeClientRepo{clients: m}
}

func (f *fakeClientRepo) CreateClient(_ repositories.SQLExecutor, client *models.Client) (int64, error) {
	client.ID = int64(len(f.clients) + 1)
	client.IsActive = true
	f.clients[client.ID] = client
	return client.ID, nil
}

func (f *fakeClientRepo) GetClientByID(storeID, clientID int64) (*models.Client, error) {
	c, ok := f.clients[clientID]
	if !ok || c.StoreID != storeID || !c.IsActive {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClientRepo) GetClients(int64, int, int, *string) ([]models.Client, int, error) {
	return nil, 0, nil
}

func (f *fakeClientRepo) UpdateClient(_ repositories.SQLExecutor, client *models.Client) error {
	if _, ok := f.clients[client.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClientRepo) DeactivateClient(_ repositories.SQLExecutor, storeID, clientID int64) error {
	c, ok := f.clients[clientID]
	if !ok || c.StoreID != storeID {
		return repositories.ErrNotFound
	}
	c.IsActive = false
	return nil
}

func (f *fakeClientRepo) IncrementVisitCount(_ repositories.SQLExecutor, storeID, clientID int64) error {
	c, ok := f.clients[clientID]
	if !ok || c.StoreID != storeID || !c.IsActive {
		return repositories.ErrNotFound
	}
	c.VisitCount++
	return nil
}

func (f *fakeClientRepo) GetClientForUpdate(_ repositories.SQLExecutor, storeID, clientID int64) (*models.Client, error) {
	return f.GetClientByID(storeID, clientID)
}

func (f *fakeClientRepo) UpdateSpendAndTag(_ repositories.SQLExecutor, clientID int64, totalSpent float64, tag string) error {
	if f.spendUpdateErr != nil {
		return f.spendUpdateErr
	}
	c, ok := f.clients[clientID]
	if !ok {
		return repositories.ErrNotFound
	}
	c.TotalSpent = totalSpent
	c.Tag = tag
	f.spendUpdateTags = append(f.spendUpdateTags, tag)
	return nil
}

// --- work orders ---

type fakeOrderRepo struct {
	orders       map[int64]*models.WorkOrder
	statusLogs   []models.OrderStatusLog
	notes        []models.OrderNote
	ratings      map[int64]*models.OrderRating
	nextID       int64
	lockedReads  int
	statusLogErr error
}

func newFakeOrderRepo(orders ...*models.WorkOrder) *fakeOrderRepo {
	f := &fakeOrderRepo{
		orders:  make(map[int64]*models.WorkOrder),
		ratings: make(map[int64]*models.OrderRating),
	}
	for _, o := range orders {
		f.orders[o.ID] = o
		if o.ID > f.nextID {
			f.nextID = o.ID
		}
	}
	return f
}

func (f *fakeOrderRepo) CreateOrder(_ repositories.SQLExecutor, order *models.WorkOrder) (int64, error) {
	for _, o := range f.orders {
		if o.StoreID == order.StoreID && o.Code == order.Code {
			return 0, fmt.Errorf("%w: order code '%s' already exists", repositories.ErrDuplicateKey, order.Code)
		}
	}
	f.nextID++
	order.ID = f.nextID
	order.IsActive = true
	f.orders[order.ID] = order
	return order.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(storeID, orderID int64) (*models.WorkOrder, error) {
	o, ok := f.orders[orderID]
	if !ok || o.StoreID != storeID || !o.IsActive {
		return nil, repositories.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrderForUpdate(_ repositories.SQLExecutor, storeID, orderID int64) (*models.WorkOrder, error) {
	f.lockedReads++
	return f.GetOrderByID(storeID, orderID)
}

// snapshotState captures orders and status logs so a fakeTxRunner can restore
// them when the function under test fails mid-transaction.
func (f *fakeOrderRepo) snapshotState() func() {
	saved := make(map[int64]models.WorkOrder, len(f.orders))
	for id, o := range f.orders {
		saved[id] = *o
	}
	logCount := len(f.statusLogs)
	return func() {
		for id, o := range saved {
			cp := o
			f.orders[id] = &cp
		}
		f.statusLogs = f.statusLogs[:logCount]
	}
}

func (f *fakeOrderRepo) GetOrderByCode(code string) (*models.WorkOrder, error) {
	for _, o := range f.orders {
		if o.Code == code && o.IsActive {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrders(int64, models.OrderFilters) ([]models.WorkOrder, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) UpdateOrderFields(_ repositories.SQLExecutor, order *models.WorkOrder) error {
	stored, ok := f.orders[order.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	*stored = *order
	return nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ repositories.SQLExecutor, orderID int64, newStatus, warrantyStatus string, warrantyExpires *time.Time, updatedAt time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = newStatus
	o.WarrantyStatus = warrantyStatus
	o.WarrantyExpires = warrantyExpires
	o.UpdatedAt = updatedAt
	return nil
}

func (f *fakeOrderRepo) DeactivateOrder(_ repositories.SQLExecutor, storeID, orderID int64) error {
	o, ok := f.orders[orderID]
	if !ok || o.StoreID != storeID || !o.IsActive {
		return repositories.ErrNotFound
	}
	o.IsActive = false
	return nil
}

func (f *fakeOrderRepo) CreateStatusLog(_ repositories.SQLExecutor, entry *models.OrderStatusLog) (int64, error) {
	if f.statusLogErr != nil {
		return 0, f.statusLogErr
	}
	entry.ID = int64(len(f.statusLogs) + 1)
	f.statusLogs = append(f.statusLogs, *entry)
	return entry.ID, nil
}

func (f *fakeOrderRepo) GetStatusLogByOrderID(orderID int64) ([]models.OrderStatusLog, error) {
	var out []models.OrderStatusLog
	for _, e := range f.statusLogs {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) CreateNote(_ repositories.SQLExecutor, note *models.OrderNote) (int64, error) {
	note.ID = int64(len(f.notes) + 1)
	f.notes = append(f.notes, *note)
	return note.ID, nil
}

func (f *fakeOrderRepo) GetNotesByOrderID(orderID int64) ([]models.OrderNote, error) {
	var out []models.OrderNote
	for _, n := range f.notes {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) CreateRating(_ repositories.SQLExecutor, rating *models.OrderRating) (int64, error) {
	if _, exists := f.ratings[rating.OrderID]; exists {
		return 0, fmt.Errorf("%w: order already rated", repositories.ErrDuplicateKey)
	}
	rating.ID = int64(len(f.ratings) + 1)
	f.ratings[rating.OrderID] = rating
	return rating.ID, nil
}

func (f *fakeOrderRepo) GetRatingByOrderID(orderID int64) (*models.OrderRating, error) {
	r, ok := f.ratings[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// --- sequences ---

type fakeSequenceRepo struct {
	counters map[string]int64
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: make(map[string]int64)}
}

func (f *fakeSequenceRepo) NextValue(_ repositories.SQLExecutor, storeID int64, scope, period string) (int64, error) {
	key := fmt.Sprintf("%d/%s/%s", storeID, scope, period)
	f.counters[key]++
	return f.counters[key], nil
}

// --- outbox ---

type fakeOutboxRepo struct {
	messages   []models.OutboxMessage
	enqueueErr error
}

func (f *fakeOutboxRepo) Enqueue(msg *models.OutboxMessage) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeOutboxRepo) FetchPending(int) ([]models.OutboxMessage, error) {
	return f.messages, nil
}

func (f *fakeOutboxRepo) MarkSent(string, time.Time) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(string, string) error { return nil }

// --- items ---

type fakeItemRepo struct {
	items       map[int64]*models.Item
	adjustments []models.StockAdjustment
}

func newFakeItemRepo(items ...*models.Item) *fakeItemRepo {
	m := make(map[int64]*models.Item)
	for _, i := range items {
		m[i.ID] = i
	}
	return &fakeItemRepo{items: m}
}

func (f *fakeItemRepo) CreateItem(_ repositories.SQLExecutor, item *models.Item) (int64, error) {
	item.ID = int64(len(f.items) + 1)
	item.IsActive = true
	f.items[item.ID] = item
	return item.ID, nil
}

func (f *fakeItemRepo) GetItemByID(storeID, itemID int64) (*models.Item, error) {
	i, ok := f.items[itemID]
	if !ok || i.StoreID != storeID || !i.IsActive {
		return nil, repositories.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeItemRepo) GetItems(int64, *string, int, int) ([]models.Item, int, error) {
	return nil, 0, nil
}

func (f *fakeItemRepo) UpdateItem(_ repositories.SQLExecutor, item *models.Item) error {
	stored, ok := f.items[item.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	*stored = *item
	return nil
}

func (f *fakeItemRepo) DeactivateItem(_ repositories.SQLExecutor, storeID, itemID int64) error {
	i, ok := f.items[itemID]
	if !ok || i.StoreID != storeID || !i.IsActive {
		return repositories.ErrNotFound
	}
	i.IsActive = false
	return nil
}

func (f *fakeItemRepo) UpdateStock(_ repositories.SQLExecutor, itemID int64, delta int) (int, error) {
	i, ok := f.items[itemID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	i.Stock += delta
	return i.Stock, nil
}

func (f *fakeItemRepo) GetItemForUpdate(_ repositories.SQLExecutor, storeID, itemID int64) (*models.Item, error) {
	return f.GetItemByID(storeID, itemID)
}

func (f *fakeItemRepo) CreateStockAdjustment(_ repositories.SQLExecutor, adj *models.StockAdjustment) (int64, error) {
	adj.ID = int64(len(f.adjustments) + 1)
	f.adjustments = append(f.adjustments, *adj)
	return adj.ID, nil
}

func (f *fakeItemRepo) GetStockAdjustmentsByItemID(itemID int64) ([]models.StockAdjustment, error) {
	var out []models.StockAdjustment
	for _, a := range f.adjustments {
		if a.ItemID == itemID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- receipts ---

type fakeReceiptRepo struct {
	receipts map[int64]*models.Receipt
	lines    map[int64][]models.ReceiptItem
	nextID   int64
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{
		receipts: make(map[int64]*models.Receipt),
		lines:    make(map[int64][]models.ReceiptItem),
	}
}

func (f *fakeReceiptRepo) CreateReceipt(_ repositories.SQLExecutor, receipt *models.Receipt) (int64, error) {
	f.nextID++
	receipt.ID = f.nextID
	f.receipts[receipt.ID] = receipt
	return receipt.ID, nil
}

func (f *fakeReceiptRepo) CreateReceiptItem(_ repositories.SQLExecutor, item *models.ReceiptItem) (int64, error) {
	item.ID = int64(len(f.lines[item.ReceiptID]) + 1)
	f.lines[item.ReceiptID] = append(f.lines[item.ReceiptID], *item)
	return item.ID, nil
}

func (f *fakeReceiptRepo) GetReceiptByID(storeID, receiptID int64) (*models.Receipt, error) {
	r, ok := f.receipts[receiptID]
	if !ok || r.StoreID != storeID {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReceiptRepo) GetReceiptItemsByReceiptID(receiptID int64) ([]models.ReceiptItem, error) {
	return f.lines[receiptID], nil
}

func (f *fakeReceiptRepo) GetReceipts(int64, models.ReceiptFilters) ([]models.Receipt, int, error) {
	return nil, 0, nil
}

func (f *fakeReceiptRepo) UpdateReceiptStatus(_ repositories.SQLExecutor, storeID, receiptID int64, status string) error {
	r, ok := f.receipts[receiptID]
	if !ok || r.StoreID != storeID {
		return repositories.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeReceiptRepo) ArchiveReceipt(_ repositories.SQLExecutor, storeID, receiptID int64) error {
	r, ok := f.receipts[receiptID]
	if !ok || r.StoreID != storeID || r.IsArchived {
		return repositories.ErrNotFound
	}
	r.IsArchived = true
	return nil
}

func (f *fakeReceiptRepo) DeleteReceiptItemsByReceiptID(_ repositories.SQLExecutor, receiptID int64) (int64, error) {
	n := int64(len(f.lines[receiptID]))
	delete(f.lines, receiptID)
	return n, nil
}

func (f *fakeReceiptRepo) DeleteReceipt(_ repositories.SQLExecutor, storeID, receiptID int64) (int64, error) {
	r, ok := f.receipts[receiptID]
	if !ok || r.StoreID != storeID {
		return 0, nil
	}
	delete(f.receipts, receiptID)
	return 1, nil
}
