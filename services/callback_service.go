package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/FarmMart/events"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/mpesa"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Outcome describes what a callback delivery did. The gateway is acknowledged
// with 200 for every outcome.
type Outcome string

const (
	OutcomeRecorded      Outcome = "recorded"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeOrphaned      Outcome = "orphaned"
	OutcomeMalformed     Outcome = "malformed"
	OutcomePersistFailed Outcome = "persist_failed"
)

type CallbackResult struct {
	Outcome           Outcome
	CheckoutRequestID string
	ResultCode        string
	TransactionID     uint
	// OrderStatus is the order's status after the callback, empty when it was not touched.
	OrderStatus string
}

type CallbackService struct {
	db        *gorm.DB
	publisher events.Publisher
	mailer    utils.Mailer
	// mail tracks farmer e-mails still being sent.
	mail errgroup.Group
}

func NewCallbackService(db *gorm.DB, publisher events.Publisher, mailer utils.Mailer) *CallbackService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if mailer == nil {
		mailer = utils.NopMailer{}
	}
	return &CallbackService{db: db, publisher: publisher, mailer: mailer}
}

// paidOrder is what the post-commit side effects need about the order.
type paidOrder struct {
	order  models.Order
	farmer models.User
}

// HandleCallback reconciles one gateway callback. It never fails: anomalies
// are logged and reported through the Outcome. Every delivery is kept in the
// callback log whatever its outcome.
func (s *CallbackService) HandleCallback(ctx context.Context, raw []byte) CallbackResult {
	result := s.reconcile(ctx, raw)
	s.logDelivery(ctx, raw, result)
	return result
}

func (s *CallbackService) logDelivery(ctx context.Context, raw []byte, result CallbackResult) {
	entry := &models.CallbackLog{
		CheckoutRequestID: result.CheckoutRequestID,
		ResultCode:        result.ResultCode,
		Outcome:           string(result.Outcome),
		Body:              string(raw),
	}
	if result.TransactionID != 0 {
		id := result.TransactionID
		entry.TransactionID = &id
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		utils.LogError("Callback log for %q (%s) not written: %v", result.CheckoutRequestID, result.Outcome, err)
	}
}

func (s *CallbackService) reconcile(ctx context.Context, raw []byte) CallbackResult {
	cb, err := mpesa.ParseCallback(raw)
	if err != nil {
		utils.LogError("Rejected M-Pesa callback: %v; body=%s", err, raw)
		return CallbackResult{Outcome: OutcomeMalformed}
	}
	result := CallbackResult{CheckoutRequestID: cb.CheckoutRequestID, ResultCode: cb.ResultCode.String()}
	log := utils.WithFields(logrus.Fields{
		"checkout_request_id": cb.CheckoutRequestID,
		"merchant_request_id": cb.MerchantRequestID,
		"result_code":         cb.ResultCode.String(),
	})

	var details *mpesa.PaymentDetails
	if cb.Succeeded() {
		details, err = cb.Details()
		if err != nil {
			utils.LogError("Successful callback %s has unusable metadata: %v; body=%s", cb.CheckoutRequestID, err, raw)
			result.Outcome = OutcomeMalformed
			return result
		}
	}

	db := s.db.WithContext(ctx)

	var request models.PaymentRequest
	err = db.Where("checkout_request_id = ?", cb.CheckoutRequestID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.LogError("Orphaned M-Pesa callback %s: no payment request; body=%s", cb.CheckoutRequestID, raw)
		result.Outcome = OutcomeOrphaned
		return result
	}
	if err != nil {
		utils.LogError("Callback %s: payment request lookup failed: %v; body=%s", cb.CheckoutRequestID, err, raw)
		result.Outcome = OutcomePersistFailed
		return result
	}

	var seen int64
	if err := db.Model(&models.Transaction{}).
		Where("checkout_request_id = ? AND result_code = ?", cb.CheckoutRequestID, cb.ResultCode.String()).
		Count(&seen).Error; err != nil {
		utils.LogError("Callback %s: duplicate check failed: %v; body=%s", cb.CheckoutRequestID, err, raw)
		result.Outcome = OutcomePersistFailed
		return result
	}
	if seen > 0 {
		log.Info("duplicate M-Pesa callback ignored")
		result.Outcome = OutcomeDuplicate
		return result
	}

	txn := &models.Transaction{
		PaymentRequestID:  request.ID,
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode.String(),
		ResultDesc:        cb.ResultDesc,
	}
	if details != nil {
		txn.CallbackMetadata = &models.CallbackMetadata{
			Amount:             details.Amount,
			MpesaReceiptNumber: details.ReceiptNumber,
			TransactionDate:    details.TransactionDate,
			PhoneNumber:        details.PhoneNumber,
		}
	}

	var paid *paidOrder
	err = db.Transaction(func(tx *gorm.DB) error {
		// creates the metadata row through the has-one association
		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		target := models.OrderStatusPaymentFailed
		if cb.Succeeded() {
			target = models.OrderStatusPaymentSuccess
		}
		res := tx.Model(&models.Order{}).
			Where("order_id = ? AND status IN ?", request.OrderID,
				[]string{models.OrderStatusInitiated, models.OrderStatusPaymentInProgress}).
			Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Warnf("order %s not moved to %s: already past payment", request.OrderID, target)
			return nil
		}
		result.OrderStatus = target
		if !cb.Succeeded() {
			return nil
		}

		p, err := notifyFarmerOfPayment(tx, request.OrderID, details)
		if err != nil {
			return err
		}
		paid = p
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent delivery of the same callback
		log.Info("duplicate M-Pesa callback ignored")
		return CallbackResult{Outcome: OutcomeDuplicate, CheckoutRequestID: cb.CheckoutRequestID, ResultCode: result.ResultCode}
	}
	if err != nil {
		utils.LogError("Callback %s not persisted: %v; body=%s", cb.CheckoutRequestID, err, raw)
		return CallbackResult{Outcome: OutcomePersistFailed, CheckoutRequestID: cb.CheckoutRequestID, ResultCode: result.ResultCode}
	}

	result.Outcome = OutcomeRecorded
	result.TransactionID = txn.ID
	log.WithField("order_status", result.OrderStatus).Info("M-Pesa callback recorded")

	s.afterCommit(request, cb, details, result, paid)
	return result
}

// notifyFarmerOfPayment asks the farmer owning the ordered animal to act on it.
func notifyFarmerOfPayment(tx *gorm.DB, orderRef string, details *mpesa.PaymentDetails) (*paidOrder, error) {
	var order models.Order
	if err := tx.Preload("Animal.Farmer.User").Where("order_id = ?", orderRef).First(&order).Error; err != nil {
		return nil, fmt.Errorf("load paid order %s: %w", orderRef, err)
	}
	farmer := order.Animal.Farmer.User

	n := &models.Notification{
		SenderID:    order.UserID,
		RecipientID: farmer.ID,
		OrderID:     order.ID,
		Message: fmt.Sprintf("Order %s has been paid (KES %s, receipt %s). Please confirm or reject it.",
			order.OrderID, details.Amount.StringFixed(0), details.ReceiptNumber),
		Status: models.NotificationStatusPending,
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification for order %s: %w", orderRef, err)
	}
	return &paidOrder{order: order, farmer: farmer}, nil
}

// afterCommit publishes the payment event and mails the farmer. Failures are
// only logged; the callback has already been recorded.
func (s *CallbackService) afterCommit(request models.PaymentRequest, cb *mpesa.STKCallback, details *mpesa.PaymentDetails, result CallbackResult, paid *paidOrder) {
	evt := events.PaymentEvent{
		OrderRef:          request.OrderID,
		OrderStatus:       result.OrderStatus,
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode.String(),
		ResultDesc:        cb.ResultDesc,
		OccurredAt:        time.Now().Unix(),
	}
	if details != nil {
		evt.Amount = details.Amount.String()
		evt.ReceiptNumber = details.ReceiptNumber
		evt.PhoneNumber = details.PhoneNumber
	}
	if err := s.publisher.Publish(evt.RoutingKey(), evt); err != nil {
		utils.LogError("Publish %s for %s failed: %v", evt.RoutingKey(), cb.CheckoutRequestID, err)
	}

	if paid == nil || paid.farmer.Email == "" {
		return
	}
	subject, body := utils.PaymentReceivedEmail(paid.farmer.Username, paid.order.OrderID,
		details.Amount.StringFixed(0), details.ReceiptNumber)
	s.mail.Go(func() error {
		if err := s.mailer.Send(paid.farmer.Email, subject, body); err != nil {
			utils.LogError("Payment e-mail for order %s failed: %v", paid.order.OrderID, err)
		}
		return nil
	})
}

// Wait blocks until queued e-mails have been handed to the mailer.
func (s *CallbackService) Wait() {
	_ = s.mail.Wait()
}
