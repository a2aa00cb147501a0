package controllers

import (
	"time"

	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
)

type UserResponse struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	IsVerified bool      `json:"is_verified"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	var out UserResponse
	if err := copier.Copy(&out, u); err != nil {
		utils.LogError("Failed to map user %d: %v", u.ID, err)
	}
	out.Roles = make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out.Roles = append(out.Roles, r.RoleName)
	}
	return out
}

type AnimalResponse struct {
	ID          uint            `json:"id"`
	FarmerID    uint            `json:"farmer_id"`
	FarmName    string          `json:"farm_name,omitempty"`
	Location    string          `json:"location,omitempty"`
	TypeID      *uint           `json:"type_id,omitempty"`
	BreedID     *uint           `json:"breed_id,omitempty"`
	Age         int             `json:"age"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	IsAvailable bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toAnimalResponse(a *models.Animal) AnimalResponse {
	var out AnimalResponse
	if err := copier.Copy(&out, a); err != nil {
		utils.LogError("Failed to map animal %d: %v", a.ID, err)
	}
	out.FarmName = a.Farmer.FarmName
	out.Location = a.Farmer.Location
	return out
}

type OrderResponse struct {
	ID        uint            `json:"id"`
	OrderID   string          `json:"order_id"`
	AnimalID  uint            `json:"animal_id"`
	Quantity  int             `json:"quantity"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	var out OrderResponse
	if err := copier.Copy(&out, o); err != nil {
		utils.LogError("Failed to map order %s: %v", o.OrderID, err)
	}
	out.Amount = o.Total()
	return out
}

func toOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}
