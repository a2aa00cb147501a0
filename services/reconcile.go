package services

import (
	"context"
	"time"

	"github.com/Govind-619/FarmMart/models"
	"gorm.io/gorm"
)

// FindUnreconciled lists acknowledged pushes older than cutoff for which no
// callback was ever recorded, oldest first. These need a manual status query
// against the gateway.
func FindUnreconciled(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]models.PaymentRequest, error) {
	var out []models.PaymentRequest
	err := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM transactions t WHERE t.payment_request_id = payment_requests.id)").
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
