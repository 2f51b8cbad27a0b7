package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

type PlaceOrderInput struct {
	// Session is the decoded table_session cookie; nil for online orders.
	Session *models.TableSession

	// TableNo is optional; when sent it must name the session's table.
	TableNo string

	Items          []models.OrderLine
	Total          float64
	PaymentMethod  string
	DeviceName     string
	Location       string
	IsOnlineOrder  bool
	IdempotencyKey string
}

type AdvanceInput struct {
	OrderID       uint
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	Role          models.Role
}

type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	TableNo       string
	Limit         int
}

// OrderService validates, stores and advances orders.
type OrderService struct {
	db       *gorm.DB
	sessions *SessionService
	rewards  *RewardService
	events   Broadcaster

	// AutoCloseOnPaid closes a table once every order of its session is
	// settled.
	AutoCloseOnPaid bool
}

func NewOrderService(db *gorm.DB, sessions *SessionService, rewards *RewardService, events Broadcaster) *OrderService {
	return &OrderService{
		db:       db,
		sessions: sessions,
		rewards:  rewards,
		events:   orNop(events),
	}
}

// PlaceOrder stores a new order. Dine-in orders are checked against the
// table row and created in the same transaction; online orders need a
// location and a device name instead.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if err := validateLines(in.Items); err != nil {
		return nil, err
	}
	if in.Total < 0 {
		return nil, utils.Validation("total must not be negative")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.findByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, checkReplay(existing, in)
		}
	}

	order := models.Order{
		Items:         in.Items,
		Total:         in.Total,
		Status:        models.OrderPending,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		PaymentStatus: models.PaymentPending,
		DeviceName:    strings.TrimSpace(in.DeviceName),
		Location:      strings.TrimSpace(in.Location),
		IsOnlineOrder: in.IsOnlineOrder,
	}
	if key != "" {
		order.IdempotencyKey = &key
	}

	var err error
	if in.IsOnlineOrder {
		err = s.createOnline(ctx, &order)
	} else {
		err = s.createDineIn(ctx, &order, in.Session, strings.TrimSpace(in.TableNo))
	}
	if err != nil {
		if key != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent retry with the same key won the insert.
			if existing, findErr := s.findByIdempotencyKey(ctx, key); findErr == nil && existing != nil {
				return existing, checkReplay(existing, in)
			}
		}
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table":    order.TableNo,
		"online":   order.IsOnlineOrder,
		"items":    len(order.Items),
	}).Info("order placed")
	s.events.Broadcast(kds.EventOrderCreated, order)

	return &order, nil
}

func (s *OrderService) createOnline(ctx context.Context, order *models.Order) error {
	if order.Location == "" {
		return utils.Validation("location is required for online orders")
	}
	if order.DeviceName == "" {
		return utils.Validation("deviceName is required for online orders")
	}
	order.TableNo = models.OnlineTableNo

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create online order: %w", err)
	}
	return nil
}

func (s *OrderService) createDineIn(ctx context.Context, order *models.Order, session *models.TableSession, tableNo string) error {
	if session == nil {
		return ErrInvalidSession
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, session.TableID).Error; err != nil {
			if isNotFound(err) {
				return ErrInvalidSession
			}
			return fmt.Errorf("load table: %w", err)
		}
		if !table.HasSession(session.SessionID) {
			return ErrInvalidSession
		}
		if !table.BoundTo(session.DeviceID) {
			return ErrDeviceMismatch
		}
		if tableNo != "" && tableNo != table.Number {
			return utils.Validation("tableNo does not match the table session")
		}

		// Write-lock the table row until commit; a concurrent close either
		// lands first and fails this update, or waits and sees the order.
		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ? AND current_session_id = ?", table.ID, models.TableOpen, session.SessionID).
			UpdateColumn("updated_at", time.Now())
		if res.Error != nil {
			return fmt.Errorf("hold table: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidSession
		}

		sessionID := session.SessionID
		deviceID := session.DeviceID
		order.TableNo = table.Number
		order.SessionID = &sessionID
		order.DeviceID = &deviceID

		if err := tx.Create(order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			return fmt.Errorf("create order: %w", err)
		}

		return tx.Model(&models.DeviceStat{}).
			Where("device_id = ?", deviceID).
			UpdateColumn("order_count", gorm.Expr("order_count + 1")).Error
	})
}

// AdvanceStatus moves an order along the kitchen/floor/counter state
// machine. Asking for the value an order already has is a no-op.
func (s *OrderService) AdvanceStatus(ctx context.Context, in AdvanceInput) (*models.Order, error) {
	if in.Status == nil && in.PaymentStatus == nil {
		return nil, utils.Validation("status or paymentStatus is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, utils.Validation(fmt.Sprintf("unknown order status %q", *in.Status))
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		return nil, utils.Validation(fmt.Sprintf("unknown payment status %q", *in.PaymentStatus))
	}

	order, err := s.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	nextStatus := order.Status
	if in.Status != nil && *in.Status != order.Status {
		if err := models.CheckStatusTransition(order.Status, *in.Status, in.Role); err != nil {
			return nil, transitionError(err)
		}
		nextStatus = *in.Status
	}

	nextPayment := order.PaymentStatus
	if in.PaymentStatus != nil && *in.PaymentStatus != order.PaymentStatus {
		if err := models.CheckPaymentTransition(nextStatus, order.PaymentStatus, *in.PaymentStatus, in.Role); err != nil {
			return nil, transitionError(err)
		}
		nextPayment = *in.PaymentStatus
	}

	if nextStatus == order.Status && nextPayment == order.PaymentStatus {
		return order, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", order.ID, order.Status, order.PaymentStatus).
		Updates(map[string]interface{}{
			"status":         nextStatus,
			"payment_status": nextPayment,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("advance order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Someone else moved the order first.
		return nil, ErrInvalidTransition
	}

	updated, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":       updated.ID,
		"role":           in.Role,
		"status":         fmt.Sprintf("%s->%s", order.Status, updated.Status),
		"payment_status": fmt.Sprintf("%s->%s", order.PaymentStatus, updated.PaymentStatus),
	}).Info("order advanced")
	s.events.Broadcast(kds.EventOrderUpdate, updated)

	if order.PaymentStatus != models.PaymentPaid && updated.PaymentStatus == models.PaymentPaid {
		s.afterPaid(ctx, updated)
	}
	return updated, nil
}

// afterPaid runs the follow-ups of a payment. They are best effort: the
// payment itself is already recorded.
func (s *OrderService) afterPaid(ctx context.Context, order *models.Order) {
	if s.rewards != nil && order.DeviceID != nil {
		if _, err := s.rewards.Award(ctx, *order.DeviceID, order.Total); err != nil {
			utils.ErrorLogger.WithField("order_id", order.ID).Errorf("award loyalty points: %v", err)
		}
	}
	if s.AutoCloseOnPaid && order.SessionID != nil && s.sessions != nil {
		if _, err := s.sessions.CloseIfSettled(ctx, *order.SessionID); err != nil {
			utils.ErrorLogger.WithField("order_id", order.ID).Errorf("auto close table: %v", err)
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.TableNo != "" {
		q = q.Where("table_no = ?", filter.TableNo)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	orders := []models.Order{}
	if err := q.Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListSessionOrders returns what the current table session has ordered.
func (s *OrderService) ListSessionOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list session orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&order).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return &order, nil
}

// checkReplay refuses to hand a stored order to a caller from another
// session that happens to reuse the key.
func checkReplay(existing *models.Order, in PlaceOrderInput) error {
	if existing.IsOnlineOrder != in.IsOnlineOrder {
		return utils.NewAppError(utils.KindConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used for a different order")
	}
	if !existing.IsOnlineOrder {
		if in.Session == nil || existing.SessionID == nil || *existing.SessionID != in.Session.SessionID {
			return utils.NewAppError(utils.KindConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used for a different order")
		}
	}
	return nil
}

func validateLines(lines []models.OrderLine) error {
	if len(lines) == 0 {
		return utils.Validation("items must not be empty")
	}
	for i, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return utils.Validation(fmt.Sprintf("items[%d].name is required", i))
		}
		if line.Qty <= 0 {
			return utils.Validation(fmt.Sprintf("items[%d].qty must be positive", i))
		}
	}
	return nil
}

func transitionError(err error) error {
	if errors.Is(err, models.ErrTransitionRole) {
		return ErrRoleNotAllowed
	}
	return ErrInvalidTransition
}
