package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants
const (
	OrderStatusInitiated         = "initiated"
	OrderStatusPaymentInProgress = "payment_in_progress"
	OrderStatusPaymentSuccess    = "payment_success"
	OrderStatusPaymentFailed     = "payment_failed"
	OrderStatusFarmerConfirmed   = "farmer_confirmed"
	OrderStatusFarmerRejected    = "farmer_rejected"
	OrderStatusBuyerConfirmed    = "buyer_confirmed"
	OrderStatusCancelled         = "cancelled"
	OrderStatusAccepted          = "accepted"
	OrderStatusDeclined          = "declined"
)

var orderTransitions = map[string][]string{
	OrderStatusInitiated:         {OrderStatusPaymentInProgress, OrderStatusPaymentSuccess, OrderStatusPaymentFailed},
	OrderStatusPaymentInProgress: {OrderStatusPaymentSuccess, OrderStatusPaymentFailed},
	OrderStatusPaymentSuccess: {
		OrderStatusFarmerConfirmed,
		OrderStatusFarmerRejected,
		OrderStatusBuyerConfirmed,
		OrderStatusCancelled,
		OrderStatusAccepted,
		OrderStatusDeclined,
	},
}

// CanTransition reports whether an order may move from one status to another.
// States missing from the table are terminal.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaidStatuses are the statuses an order can only reach after a successful payment.
var PaidStatuses = []string{
	OrderStatusPaymentSuccess,
	OrderStatusFarmerConfirmed,
	OrderStatusFarmerRejected,
	OrderStatusBuyerConfirmed,
	OrderStatusCancelled,
	OrderStatusAccepted,
	OrderStatusDeclined,
}

// Order is a buyer's purchase of one animal listing. OrderID is the external
// reference sent to the gateway as AccountReference.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	AnimalID  uint      `gorm:"not null;index" json:"animal_id"`
	Animal    Animal    `gorm:"foreignKey:AnimalID" json:"animal,omitempty"`
	OrderID   string    `gorm:"uniqueIndex;size:64;not null" json:"order_id"`
	Quantity  int       `json:"quantity"`
	Status    string    `gorm:"size:32;not null;default:initiated;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total is the animal price times the quantity. It is zero when the animal is not loaded.
func (o Order) Total() decimal.Decimal {
	return o.Animal.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
