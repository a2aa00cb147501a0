package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResultCodeSuccess is the gateway result code of a completed payment.
const ResultCodeSuccess = "0"

// PaymentRequest records one acknowledged STK push. It is never updated after creation.
type PaymentRequest struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	OrderID             string    `json:"order_id" gorm:"size:64;not null;index"`
	UserID              uint      `json:"user_id" gorm:"not null;index"`
	MerchantRequestID   string    `json:"merchant_request_id" gorm:"size:64;index"`
	CheckoutRequestID   string    `json:"checkout_request_id" gorm:"size:64;not null;uniqueIndex"`
	ResponseCode        string    `json:"response_code" gorm:"size:16"`
	ResponseDescription string    `json:"response_description"`
	CustomerMessage     string    `json:"customer_message"`
	CreatedAt           time.Time `json:"created_at"`
}

// Transaction is written for every callback delivery, successful or not.
// (checkout_request_id, result_code) is unique so redelivered callbacks are dropped.
type Transaction struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	PaymentRequestID  uint              `json:"payment_request_id" gorm:"not null;index"`
	PaymentRequest    PaymentRequest    `json:"-" gorm:"foreignKey:PaymentRequestID"`
	MerchantRequestID string            `json:"merchant_request_id" gorm:"size:64"`
	CheckoutRequestID string            `json:"checkout_request_id" gorm:"size:64;not null;uniqueIndex:idx_transactions_checkout_result"`
	ResultCode        string            `json:"result_code" gorm:"size:16;not null;uniqueIndex:idx_transactions_checkout_result"`
	ResultDesc        string            `json:"result_desc"`
	CallbackMetadata  *CallbackMetadata `json:"callback_metadata,omitempty" gorm:"foreignKey:TransactionID"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (t Transaction) Succeeded() bool {
	return t.ResultCode == ResultCodeSuccess
}

// CallbackMetadata exists only for successful transactions, exactly once each.
type CallbackMetadata struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	TransactionID      uint            `json:"transaction_id" gorm:"not null;uniqueIndex"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(10,2)"`
	MpesaReceiptNumber string          `json:"mpesa_receipt_number" gorm:"size:32"`
	TransactionDate    int64           `json:"transaction_date"`
	PhoneNumber        string          `json:"phone_number" gorm:"size:20"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (CallbackMetadata) TableName() string {
	return "callback_metadata"
}

// CallbackLog keeps the raw body and outcome of every callback delivery,
// including the ones that produced no Transaction.
type CallbackLog struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	CheckoutRequestID string    `json:"checkout_request_id" gorm:"size:64;index"`
	ResultCode        string    `json:"result_code" gorm:"size:16"`
	Outcome           string    `json:"outcome" gorm:"size:32;not null;index"`
	TransactionID     *uint     `json:"transaction_id,omitempty"`
	Body              string    `json:"body" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
}
