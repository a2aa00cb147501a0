package models

import "time"

const (
	NotificationStatusPending  = "pending"
	NotificationStatusAccepted = "accepted"
	NotificationStatusDeclined = "declined"
)

// Notification asks its recipient to act on an order.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SenderID    uint      `json:"sender_id" gorm:"not null"`
	RecipientID uint      `json:"recipient_id" gorm:"not null;index"`
	OrderID     uint      `json:"order_id" gorm:"not null;index"`
	Order       Order     `json:"-" gorm:"foreignKey:OrderID"`
	Message     string    `json:"message" gorm:"type:text"`
	Status      string    `json:"status" gorm:"size:16;not null;default:pending"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
