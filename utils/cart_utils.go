package utils

import (
	"fmt"

	"github.com/Govind-619/FarmMart/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartLine is one cart row priced at the animal's current price.
type CartLine struct {
	CartID    uint            `json:"cart_id"`
	AnimalID  uint            `json:"animal_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
}

type CartDetails struct {
	Items       []CartLine      `json:"items"`
	Total       decimal.Decimal `json:"total"`
	CanCheckout bool            `json:"can_checkout"`
}

// GetCartDetails retrieves a user's cart with line and grand totals. Lines
// whose animal is no longer available are listed but excluded from the total.
func GetCartDetails(db *gorm.DB, userID uint) (*CartDetails, error) {
	var cartItems []models.Cart
	if err := db.Preload("Animal").Where("user_id = ?", userID).Order("id").Find(&cartItems).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch cart items: %v", err)
	}

	details := &CartDetails{Items: make([]CartLine, 0, len(cartItems)), Total: decimal.Zero}
	for _, item := range cartItems {
		line := CartLine{
			CartID:    item.ID,
			AnimalID:  item.AnimalID,
			Quantity:  item.Quantity,
			UnitPrice: item.Animal.Price,
			LineTotal: item.Animal.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Available: item.Animal.ID != 0 && item.Animal.IsAvailable,
		}
		if line.Available {
			details.Total = details.Total.Add(line.LineTotal)
			details.CanCheckout = true
		}
		details.Items = append(details.Items, line)
	}
	return details, nil
}
