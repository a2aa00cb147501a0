package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"gorm.io/gorm"
)

// Actions accepted by the farmer and buyer endpoints
const (
	ActionConfirm = "confirm"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

var (
	farmerActionStatus = map[string]string{
		ActionConfirm: models.OrderStatusFarmerConfirmed,
		ActionReject:  models.OrderStatusFarmerRejected,
	}
	buyerActionStatus = map[string]string{
		ActionConfirm: models.OrderStatusBuyerConfirmed,
		ActionCancel:  models.OrderStatusCancelled,
	}
	notificationOrderStatus = map[string]string{
		models.NotificationStatusAccepted: models.OrderStatusAccepted,
		models.NotificationStatusDeclined: models.OrderStatusDeclined,
	}
)

func (s *OrderService) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Animal.Farmer").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Order not found", nil)
	}
	if err != nil {
		return nil, utils.PersistenceError("Failed to load order", err)
	}
	return &order, nil
}

// transition moves the order from expected to next. Zero rows affected means
// another request changed the order first.
func transition(tx *gorm.DB, order *models.Order, expected, next string) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, expected).
		Update("status", next)
	if res.Error != nil {
		return utils.PersistenceError("Failed to update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.StateConflictError(fmt.Sprintf("Order %s is no longer %s", order.OrderID, expected))
	}
	order.Status = next
	return nil
}

func requirePaid(order *models.Order) error {
	if order.Status != models.OrderStatusPaymentSuccess {
		return utils.StateConflictError(fmt.Sprintf("Order %s is %s; only paid orders can be actioned", order.OrderID, order.Status))
	}
	return nil
}

// ApplyFarmerAction confirms or rejects a paid order on behalf of the farmer who listed the animal.
func (s *OrderService) ApplyFarmerAction(ctx context.Context, farmer *models.User, orderID uint, action string) (*models.Order, error) {
	next, ok := farmerActionStatus[action]
	if !ok {
		return nil, utils.BadRequestError("Action must be confirm or reject", nil)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Animal.Farmer.UserID != farmer.ID {
		return nil, utils.NotFoundError("Order not found", nil)
	}
	if err := requirePaid(order); err != nil {
		return nil, err
	}

	closed := models.NotificationStatusAccepted
	if action == ActionReject {
		closed = models.NotificationStatusDeclined
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, order, models.OrderStatusPaymentSuccess, next); err != nil {
			return err
		}
		if err := tx.Model(&models.Notification{}).
			Where("order_id = ? AND recipient_id = ? AND status = ?", order.ID, farmer.ID, models.NotificationStatusPending).
			Update("status", closed).Error; err != nil {
			return utils.PersistenceError("Failed to update notifications", err)
		}
		return createNotification(tx, farmer.ID, order.UserID, order,
			fmt.Sprintf("The farmer has %s order %s.", pastTense(action), order.OrderID))
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Farmer %d %s order %s", farmer.ID, pastTense(action), order.OrderID)
	return order, nil
}

// ApplyBuyerAction confirms receipt of or cancels a paid order owned by the buyer.
func (s *OrderService) ApplyBuyerAction(ctx context.Context, buyer *models.User, orderID uint, action string) (*models.Order, error) {
	next, ok := buyerActionStatus[action]
	if !ok {
		return nil, utils.BadRequestError("Action must be confirm or cancel", nil)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != buyer.ID {
		return nil, utils.NotFoundError("Order not found", nil)
	}
	if err := requirePaid(order); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, order, models.OrderStatusPaymentSuccess, next); err != nil {
			return err
		}
		return createNotification(tx, buyer.ID, order.Animal.Farmer.UserID, order,
			fmt.Sprintf("The buyer has %s order %s.", pastTense(action), order.OrderID))
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("Buyer %d %s order %s", buyer.ID, pastTense(action), order.OrderID)
	return order, nil
}

// RespondToNotification records the recipient's answer and carries it over to the order.
func (s *OrderService) RespondToNotification(ctx context.Context, user *models.User, notificationID uint, response string) (*models.Notification, error) {
	orderStatus, ok := notificationOrderStatus[response]
	if !ok {
		return nil, utils.BadRequestError("Response must be accepted or declined", nil)
	}

	var n models.Notification
	err := s.db.WithContext(ctx).Preload("Order").
		Where("id = ? AND recipient_id = ?", notificationID, user.ID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Notification not found", nil)
	}
	if err != nil {
		return nil, utils.PersistenceError("Failed to load notification", err)
	}
	if n.Status != models.NotificationStatusPending {
		return nil, utils.StateConflictError(fmt.Sprintf("Notification was already %s", n.Status))
	}
	if !models.CanTransition(n.Order.Status, orderStatus) {
		return nil, utils.StateConflictError(fmt.Sprintf("Order %s is %s and cannot be %s", n.Order.OrderID, n.Order.Status, response))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", n.ID, models.NotificationStatusPending).
			Update("status", response)
		if res.Error != nil {
			return utils.PersistenceError("Failed to update notification", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.StateConflictError("Notification was already answered")
		}
		return transition(tx, &n.Order, n.Order.Status, orderStatus)
	})
	if err != nil {
		return nil, err
	}
	n.Status = response
	utils.LogInfo("User %d %s notification %d; order %s is now %s", user.ID, response, n.ID, n.Order.OrderID, n.Order.Status)
	return &n, nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *OrderService) ListNotifications(ctx context.Context, recipientID uint, p *utils.Pagination) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Session(&gorm.Session{})
	if p != nil {
		var total int64
		if err := q.Count(&total).Error; err != nil {
			return nil, utils.PersistenceError("Failed to count notifications", err)
		}
		p.SetTotal(total)
		q = q.Scopes(p.Scope)
	}

	var out []models.Notification
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, utils.PersistenceError("Failed to load notifications", err)
	}
	return out, nil
}

func createNotification(tx *gorm.DB, senderID, recipientID uint, order *models.Order, message string) error {
	n := &models.Notification{
		SenderID:    senderID,
		RecipientID: recipientID,
		OrderID:     order.ID,
		Message:     message,
		Status:      models.NotificationStatusPending,
	}
	if err := tx.Create(n).Error; err != nil {
		return utils.PersistenceError("Failed to create notification", err)
	}
	return nil
}

func pastTense(action string) string {
	switch action {
	case ActionConfirm:
		return "confirmed"
	case ActionReject:
		return "rejected"
	case ActionCancel:
		return "cancelled"
	}
	return action
}
