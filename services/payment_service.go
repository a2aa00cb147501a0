// Package services holds the payment, callback and order workflows used by the HTTP controllers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/mpesa"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gateway sends STK push requests. *mpesa.Client implements it.
type Gateway interface {
	STKPush(ctx context.Context, orderRef, phone string, amount int64) (*mpesa.STKPushResponse, error)
}

type PaymentService struct {
	db      *gorm.DB
	gateway Gateway
}

func NewPaymentService(db *gorm.DB, gateway Gateway) *PaymentService {
	return &PaymentService{db: db, gateway: gateway}
}

// InitiationResult is the gateway acknowledgment and the record written for it.
type InitiationResult struct {
	Request    *models.PaymentRequest
	StatusCode int
	Body       []byte
}

// Initiate charges the buyer's registered phone for an order. Gateway errors
// that carry a response are returned as *mpesa.UpstreamError so callers can
// proxy them unchanged.
func (s *PaymentService) Initiate(ctx context.Context, buyer *models.User, orderRef string, amount decimal.Decimal) (*InitiationResult, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, utils.BadRequestError("orderId is required", nil)
	}
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(0)) {
		return nil, utils.BadRequestError(utils.ErrInvalidAmount, nil)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Preload("Animal").
		Where("order_id = ? AND user_id = ?", orderRef, buyer.ID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Order not found", nil)
	}
	if err != nil {
		return nil, utils.PersistenceError("Failed to load order", err)
	}
	if order.Status != models.OrderStatusInitiated {
		return nil, utils.StateConflictError(fmt.Sprintf("Order %s is %s and cannot be paid", order.OrderID, order.Status))
	}
	if total := order.Total(); total.IsPositive() && !total.Equal(amount) {
		return nil, utils.BadRequestError(fmt.Sprintf("Amount must equal the order total of %s", total.StringFixed(0)), nil)
	}

	// the charge always goes to the number on the account
	phone, err := utils.NormalizeMSISDN(buyer.Phone)
	if err != nil {
		return nil, utils.BadRequestError("Your account has no valid M-Pesa phone number", err)
	}

	// claim the order before pushing so a second initiation cannot charge again
	claim := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusInitiated).
		Update("status", models.OrderStatusPaymentInProgress)
	if claim.Error != nil {
		return nil, utils.PersistenceError("Failed to update order", claim.Error)
	}
	if claim.RowsAffected == 0 {
		utils.LogWarn("Order %s was claimed by another payment initiation", order.OrderID)
		return nil, utils.StateConflictError(fmt.Sprintf("Payment for order %s is already in progress", order.OrderID))
	}

	ack, err := s.gateway.STKPush(ctx, order.OrderID, phone, amount.IntPart())
	if err != nil {
		s.releaseOrder(ctx, &order)
		return nil, classifyGatewayError(err)
	}

	record := &models.PaymentRequest{
		OrderID:             order.OrderID,
		UserID:              buyer.ID,
		MerchantRequestID:   ack.MerchantRequestID,
		CheckoutRequestID:   ack.CheckoutRequestID,
		ResponseCode:        ack.ResponseCode.String(),
		ResponseDescription: ack.ResponseDescription,
		CustomerMessage:     ack.CustomerMessage,
	}
	// the order stays payment_in_progress: the buyer's phone has been prompted
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(record).Error; err != nil {
		utils.LogError("STK push %s for order %s was sent but not recorded: %v", ack.CheckoutRequestID, order.OrderID, err)
		return nil, utils.PersistenceError("Failed to record payment request", err)
	}

	utils.LogInfo("STK push %s sent for order %s (buyer %d, KES %s)", ack.CheckoutRequestID, order.OrderID, buyer.ID, amount.String())
	return &InitiationResult{Request: record, StatusCode: ack.StatusCode, Body: ack.Raw}, nil
}

// releaseOrder puts a claimed order back to initiated after a push that was not
// accepted, so the buyer can try again.
func (s *PaymentService) releaseOrder(ctx context.Context, order *models.Order) {
	res := s.db.WithContext(context.WithoutCancel(ctx)).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPaymentInProgress).
		Update("status", models.OrderStatusInitiated)
	if res.Error != nil {
		utils.LogError("Order %s stuck in %s after a failed push: %v", order.OrderID, models.OrderStatusPaymentInProgress, res.Error)
	}
}

func classifyGatewayError(err error) error {
	var upstream *mpesa.UpstreamError
	switch {
	case errors.Is(err, mpesa.ErrAuthFailure):
		utils.LogError("M-Pesa token request failed: %v", err)
		return utils.UnauthorizedError("Failed to obtain M-Pesa access token", err)
	case errors.As(err, &upstream):
		utils.LogWarn("M-Pesa rejected STK push: %v", err)
		return upstream
	case errors.Is(err, mpesa.ErrGatewayUnavailable):
		utils.LogError("M-Pesa unreachable: %v", err)
		return utils.BadGatewayError("Payment gateway unavailable", err)
	default:
		utils.LogError("STK push failed: %v", err)
		return utils.BadGatewayError("Payment gateway error", err)
	}
}
