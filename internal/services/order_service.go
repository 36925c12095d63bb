package services

import (
	"errors"
	"fmt"
	"time"

	"fixpoint_backend/internal/models"
	"fixpoint_backend/internal/repositories"
	"fixpoint_backend/pkg/utils"

	"github.com/google/uuid"
)

// Custom Errors
var (
	ErrOrderNotFound  = errors.New("work order not found")
	ErrClientNotFound = errors.New("client not found")
	ErrUnknownActor   = errors.New("acting user is not an active member of this store")
	ErrWarrantyLocked = errors.New("warranty length cannot be edited on a delivered order")
	ErrAlreadyRated   = errors.New("work order has already been rated")
)

// --- Data Transfer Objects (DTOs) ---

// CreateOrderRequest is used for intake of a new work order.
type CreateOrderRequest struct {
	ClientID      int64    `json:"client_id" binding:"required"`
	TechnicianID  *int64   `json:"technician_id"`
	Device        string   `json:"device" binding:"required"`
	ReportedFault string   `json:"reported_fault" binding:"required"`
	FaultTags     []string `json:"fault_tags"`
	AgreedPrice   *float64 `json:"agreed_price"`
	PartsCost     float64  `json:"parts_cost"`
	WarrantyDays  *int     `json:"warranty_days"`
}

// UpdateOrderRequest carries direct field edits, which do not require a
// state transition.
type UpdateOrderRequest struct {
	TechnicianID  *int64   `json:"technician_id"`
	Device        *string  `json:"device"`
	ReportedFault *string  `json:"reported_fault"`
	FaultTags     []string `json:"fault_tags"`
	AgreedPrice   *float64 `json:"agreed_price"`
	PartsCost     *float64 `json:"parts_cost"`
	WarrantyDays  *int     `json:"warranty_days"`
}

// TransitionRequest asks the state machine to move an order to a new status.
type TransitionRequest struct {
	ToStatus string  `json:"to_status" binding:"required"`
	Message  *string `json:"message"`
}

// AddNoteRequest appends an internal note to an order.
type AddNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

// RateOrderRequest records the customer's rating of a delivered repair.
type RateOrderRequest struct {
	Score   int     `json:"score" binding:"required,gte=1,lte=5"`
	Comment *string `json:"comment"`
}

// --- OrderService Interface ---

type OrderService interface {
	CreateOrder(storeID, actingUserID int64, req CreateOrderRequest) (*models.WorkOrder, error)
	GetOrders(storeID int64, filters models.OrderFilters) ([]models.WorkOrder, int, error)
	GetOrderByID(storeID, orderID int64) (*models.WorkOrder, error)
	// TrackOrderByCode serves the public tracking page: order code in,
	// current status and log out, no authentication.
	TrackOrderByCode(code string) (*models.WorkOrder, error)
	UpdateOrder(storeID, orderID, actingUserID int64, req UpdateOrderRequest) (*models.WorkOrder, error)
	TransitionOrder(storeID, orderID, actingUserID int64, req TransitionRequest) (*models.WorkOrder, error)
	DeleteOrder(storeID, orderID int64) error
	AddNote(storeID, orderID, actingUserID int64, req AddNoteRequest) (*models.OrderNote, error)
	RateOrder(storeID, orderID int64, req RateOrderRequest) (*models.OrderRating, error)
}

// --- orderService Implementation ---

type orderService struct {
	orderRepo  repositories.OrderRepository
	clientRepo repositories.ClientRepository
	userRepo   repositories.UserRepository
	seqRepo    repositories.SequenceRepository
	outboxRepo repositories.OutboxRepository
	tx         TxRunner
	now        func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	cr repositories.ClientRepository,
	ur repositories.UserRepository,
	sr repositories.SequenceRepository,
	xr repositories.OutboxRepository,
	tx TxRunner,
) OrderService {
	return &orderService{
		orderRepo:  or,
		clientRepo: cr,
		userRepo:   ur,
		seqRepo:    sr,
		outboxRepo: xr,
		tx:         tx,
		now:        time.Now,
	}
}

// formatOrderCode builds the human-readable store-scoped order code from the
// creation day and the day's sequence number.
func formatOrderCode(day time.Time, seq int64) string {
	return fmt.Sprintf("OT-%s-%03d", day.Format("20060102"), seq)
}

// --- Method Implementations ---

// CreateOrder establishes the initial received state. The order code, the
// client visit-count increment and the order row itself commit together: if
// any of them cannot complete, no order exists.
func (s *orderService) CreateOrder(storeID, actingUserID int64, req CreateOrderRequest) (*models.WorkOrder, error) {
	if req.Device == "" || req.ReportedFault == "" {
		return nil, fmt.Errorf("%w: device and reported fault are required", ErrValidation)
	}

	var order *models.WorkOrder
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if err := s.requireActiveMember(tx, actingUserID, storeID); err != nil {
			return err
		}
		if req.TechnicianID != nil {
			if err := s.requireActiveMember(tx, *req.TechnicianID, storeID); err != nil {
				return fmt.Errorf("%w: technician", ErrUnknownActor)
			}
		}

		createdAt := s.now()
		seq, err := s.seqRepo.NextValue(tx, storeID, repositories.SequenceOrder, createdAt.Format("20060102"))
		if err != nil {
			return fmt.Errorf("failed to generate order code: %w", err)
		}

		if err := s.clientRepo.IncrementVisitCount(tx, storeID, req.ClientID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("failed to increment client visit count: %w", err)
		}

		order = &models.WorkOrder{
			StoreID:        storeID,
			Code:           formatOrderCode(createdAt, seq),
			ClientID:       req.ClientID,
			TechnicianID:   req.TechnicianID,
			CreatedByID:    actingUserID,
			Device:         req.Device,
			ReportedFault:  req.ReportedFault,
			FaultTags:      req.FaultTags,
			AgreedPrice:    req.AgreedPrice,
			PartsCost:      req.PartsCost,
			WarrantyDays:   req.WarrantyDays,
			Status:         StatusReceived,
			WarrantyStatus: WarrantyNone,
			CreatedAt:      createdAt,
		}
		if _, err := s.orderRepo.CreateOrder(tx, order); err != nil {
			return fmt.Errorf("failed to create work order record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrderByID(storeID, order.ID)
}

func (s *orderService) GetOrders(storeID int64, filters models.OrderFilters) ([]models.WorkOrder, int, error) {
	orders, totalCount, err := s.orderRepo.GetOrders(storeID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get work orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(storeID, orderID int64) (*models.WorkOrder, error) {
	order, err := s.orderRepo.GetOrderByID(storeID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order from repository: %w", err)
	}

	log, err := s.orderRepo.GetStatusLogByOrderID(orderID)
	if err != nil {
		utils.LogWarn(err, fmt.Sprintf("failed to load status log for order %d", orderID))
	}
	order.StatusLog = log

	notes, err := s.orderRepo.GetNotesByOrderID(orderID)
	if err != nil {
		utils.LogWarn(err, fmt.Sprintf("failed to load notes for order %d", orderID))
	}
	order.Notes = notes

	rating, err := s.orderRepo.GetRatingByOrderID(orderID)
	if err == nil {
		order.Rating = rating
	} else if !errors.Is(err, repositories.ErrNotFound) {
		utils.LogWarn(err, fmt.Sprintf("failed to load rating for order %d", orderID))
	}

	return order, nil
}

func (s *orderService) TrackOrderByCode(code string) (*models.WorkOrder, error) {
	order, err := s.orderRepo.GetOrderByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order by code: %w", err)
	}
	log, err := s.orderRepo.GetStatusLogByOrderID(order.ID)
	if err != nil {
		utils.LogWarn(err, fmt.Sprintf("failed to load status log for order %d", order.ID))
	}
	order.StatusLog = log
	return order, nil
}

// UpdateOrder applies direct field edits. Allowed in any state, with one
// asymmetry carried over from the original system: once an order is
// delivered, warranty length is locked.
func (s *orderService) UpdateOrder(storeID, orderID, actingUserID int64, req UpdateOrderRequest) (*models.WorkOrder, error) {
	order, err := s.orderRepo.GetOrderByID(storeID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch work order for update: %w", err)
	}

	if req.WarrantyDays != nil && order.Status == StatusDelivered {
		return nil, ErrWarrantyLocked
	}

	if req.Device != nil {
		order.Device = *req.Device
	}
	if req.ReportedFault != nil {
		order.ReportedFault = *req.ReportedFault
	}
	if req.FaultTags != nil {
		order.FaultTags = req.FaultTags
	}
	if req.AgreedPrice != nil {
		order.AgreedPrice = req.AgreedPrice
	}
	if req.PartsCost != nil {
		order.PartsCost = *req.PartsCost
	}
	if req.WarrantyDays != nil {
		order.WarrantyDays = req.WarrantyDays
	}
	if req.TechnicianID != nil {
		order.TechnicianID = req.TechnicianID
	}

	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if err := s.requireActiveMember(tx, actingUserID, storeID); err != nil {
			return err
		}
		if order.TechnicianID != nil {
			if err := s.requireActiveMember(tx, *order.TechnicianID, storeID); err != nil {
				return fmt.Errorf("%w: technician", ErrUnknownActor)
			}
		}
		return s.orderRepo.UpdateOrderFields(tx, order)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.GetOrderByID(storeID, orderID)
}

// TransitionOrder validates and applies a status transition as one atomic
// unit: the status update, the warranty computation and the status-log append
// become visible together or not at all. The client tier update and the
// customer notification happen after the commit and never roll it back.
func (s *orderService) TransitionOrder(storeID, orderID, actingUserID int64, req TransitionRequest) (*models.WorkOrder, error) {
	var order *models.WorkOrder

	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if err := s.requireActiveMember(tx, actingUserID, storeID); err != nil {
			return err
		}

		var err error
		order, err = s.orderRepo.GetOrderForUpdate(tx, storeID, orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch work order for transition: %w", err)
		}

		if err := ValidateTransition(order.Status, req.ToStatus); err != nil {
			return err
		}

		transitionAt := s.now()
		warrantyStatus := order.WarrantyStatus
		warrantyExpires := order.WarrantyExpires
		if req.ToStatus == StatusDelivered && order.WarrantyDays != nil {
			expires := transitionAt.AddDate(0, 0, *order.WarrantyDays)
			warrantyStatus = WarrantyActive
			warrantyExpires = &expires
		}

		if err := s.orderRepo.UpdateOrderStatus(tx, orderID, req.ToStatus, warrantyStatus, warrantyExpires, transitionAt); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to update work order status: %w", err)
		}

		entry := &models.OrderStatusLog{
			OrderID:    orderID,
			FromStatus: order.Status,
			ToStatus:   req.ToStatus,
			Message:    req.Message,
			UserID:     actingUserID,
			CreatedAt:  transitionAt,
		}
		if _, err := s.orderRepo.CreateStatusLog(tx, entry); err != nil {
			return fmt.Errorf("failed to append status log entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The status change is committed. Everything below is best-effort: a
	// failed tier update or notification is logged and reconciled
	// out-of-band, never rolled back or retried synchronously.
	if req.ToStatus == StatusDelivered {
		if err := s.settleClientTier(storeID, order); err != nil {
			utils.LogError(err, fmt.Sprintf("tier update failed after delivery of order %s", order.Code))
		}
	}
	s.enqueueStatusNotification(storeID, order, req.ToStatus)

	return s.GetOrderByID(storeID, orderID)
}

// settleClientTier adds the delivered order's agreed price (or zero) to the
// client's cumulative spend and replaces the stored tag with the recomputed
// tier. Spend and tag are written in one transaction under a row lock so the
// triple can never interleave with another writer.
func (s *orderService) settleClientTier(storeID int64, order *models.WorkOrder) error {
	return s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		client, err := s.clientRepo.GetClientForUpdate(tx, storeID, order.ClientID)
		if err != nil {
			return fmt.Errorf("failed to lock client %d for tier update: %w", order.ClientID, err)
		}
		newTotal := client.TotalSpent
		if order.AgreedPrice != nil {
			newTotal += *order.AgreedPrice
		}
		tag := RecomputeTier(client.VisitCount, newTotal)
		if err := s.clientRepo.UpdateSpendAndTag(tx, client.ID, newTotal, tag); err != nil {
			return fmt.Errorf("failed to update client spend and tag: %w", err)
		}
		return nil
	})
}

// enqueueStatusNotification queues a customer message describing the new
// status. Failures are logged and swallowed.
func (s *orderService) enqueueStatusNotification(storeID int64, order *models.WorkOrder, toStatus string) {
	client, err := s.clientRepo.GetClientByID(storeID, order.ClientID)
	if err != nil {
		utils.LogWarn(err, fmt.Sprintf("skipping notification for order %s: client lookup failed", order.Code))
		return
	}
	if client.Phone == nil || *client.Phone == "" {
		return
	}
	msg := &models.OutboxMessage{
		ID:      uuid.NewString(),
		StoreID: storeID,
		Phone:   *client.Phone,
		Body:    statusNotificationText(order.Code, toStatus),
	}
	if err := s.outboxRepo.Enqueue(msg); err != nil {
		utils.LogWarn(err, fmt.Sprintf("failed to enqueue notification for order %s", order.Code))
	}
}

// DeleteOrder soft-deactivates an order; it is excluded from all further
// queries but never physically removed.
func (s *orderService) DeleteOrder(storeID, orderID int64) error {
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		return s.orderRepo.DeactivateOrder(tx, storeID, orderID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}

func (s *orderService) AddNote(storeID, orderID, actingUserID int64, req AddNoteRequest) (*models.OrderNote, error) {
	if req.Body == "" {
		return nil, fmt.Errorf("%w: note body cannot be empty", ErrValidation)
	}
	note := &models.OrderNote{OrderID: orderID, UserID: actingUserID, Body: req.Body}
	err := s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		if err := s.requireActiveMember(tx, actingUserID, storeID); err != nil {
			return err
		}
		if _, err := s.orderRepo.GetOrderByID(storeID, orderID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch work order for note: %w", err)
		}
		_, err := s.orderRepo.CreateNote(tx, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *orderService) RateOrder(storeID, orderID int64, req RateOrderRequest) (*models.OrderRating, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, fmt.Errorf("%w: score must be between 1 and 5", ErrValidation)
	}
	order, err := s.orderRepo.GetOrderByID(storeID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch work order for rating: %w", err)
	}
	if order.Status != StatusDelivered {
		return nil, fmt.Errorf("%w: only delivered orders can be rated", ErrValidation)
	}

	rating := &models.OrderRating{OrderID: orderID, Score: req.Score, Comment: req.Comment}
	err = s.tx.WithinTx(func(tx repositories.SQLExecutor) error {
		_, err := s.orderRepo.CreateRating(tx, rating)
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAlreadyRated
		}
		return nil, err
	}
	return rating, nil
}

func (s *orderService) requireActiveMember(tx repositories.SQLExecutor, userID, storeID int64) error {
	ok, err := s.userRepo.IsActiveStoreMember(tx, userID, storeID)
	if err != nil {
		return fmt.Errorf("failed to verify acting user: %w", err)
	}
	if !ok {
		return ErrUnknownActor
	}
	return nil
}
