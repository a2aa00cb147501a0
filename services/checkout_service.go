package services

import (
	"context"

	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"gorm.io/gorm"
)

type CheckoutService struct {
	db *gorm.DB
}

func NewCheckoutService(db *gorm.DB) *CheckoutService {
	return &CheckoutService{db: db}
}

// Checkout turns every available cart line into an order in status initiated
// and empties the cart. Each order gets its own external reference, which is
// what the buyer later pays against.
func (s *CheckoutService) Checkout(ctx context.Context, buyer *models.User) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.Cart
		if err := tx.Preload("Animal").Where("user_id = ?", buyer.ID).Order("id").Find(&items).Error; err != nil {
			return utils.PersistenceError("Failed to load cart", err)
		}
		if len(items) == 0 {
			return utils.BadRequestError("Cart is empty", nil)
		}

		for _, item := range items {
			if item.Animal.ID == 0 || !item.Animal.IsAvailable {
				utils.LogWarn("Skipping unavailable animal %d in cart of user %d", item.AnimalID, buyer.ID)
				continue
			}
			order := models.Order{
				UserID:   buyer.ID,
				AnimalID: item.AnimalID,
				OrderID:  utils.NewOrderReference(),
				Quantity: item.Quantity,
				Status:   models.OrderStatusInitiated,
			}
			if err := tx.Create(&order).Error; err != nil {
				return utils.PersistenceError("Failed to create order", err)
			}
			order.Animal = item.Animal
			orders = append(orders, order)
		}
		if len(orders) == 0 {
			return utils.BadRequestError("No item in the cart is available any more", nil)
		}

		if err := tx.Where("user_id = ?", buyer.ID).Delete(&models.Cart{}).Error; err != nil {
			return utils.PersistenceError("Failed to clear cart", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInfo("User %d checked out %d order(s)", buyer.ID, len(orders))
	return orders, nil
}
