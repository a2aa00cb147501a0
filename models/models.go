package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role names
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
	RoleAdmin  = "admin"
)

// User represents a marketplace account. A user can be a farmer, a buyer or both.
type User struct {
	gorm.Model
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Password   string `json:"-"`
	Phone      string `gorm:"size:20" json:"phone"`
	IsVerified bool   `json:"is_verified" gorm:"default:false"`
	Roles      []Role `json:"roles,omitempty" gorm:"many2many:users_roles;"`
}

// HasRole reports whether the user was granted the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.RoleName == name {
			return true
		}
	}
	return false
}

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoleName    string    `gorm:"uniqueIndex;not null" json:"role_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// FarmersProfile holds the seller side of a farmer account
type FarmersProfile struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"-"`
	FarmName string `json:"farm_name"`
	Location string `json:"location"`
}

func (FarmersProfile) TableName() string {
	return "farmers_profiles"
}

type AnimalType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type Breed struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	TypeID uint       `json:"type_id"`
	Type   AnimalType `gorm:"foreignKey:TypeID" json:"-"`
	Name   string     `json:"name"`
}

// Animal is a livestock listing published by a farmer
type Animal struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	FarmerID    uint            `gorm:"not null;index" json:"farmer_id"`
	Farmer      FarmersProfile  `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	TypeID      *uint           `json:"type_id,omitempty"`
	Type        *AnimalType     `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	BreedID     *uint           `json:"breed_id,omitempty"`
	Breed       *Breed          `gorm:"foreignKey:BreedID" json:"breed,omitempty"`
	Age         int             `json:"age"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Description string          `gorm:"type:text" json:"description"`
	IsAvailable bool            `gorm:"default:true" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Cart struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	AnimalID uint   `gorm:"not null" json:"animal_id"`
	Animal   Animal `gorm:"foreignKey:AnimalID" json:"animal"`
	Quantity int    `json:"quantity"`
}

func (Cart) TableName() string {
	return "cart"
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&FarmersProfile{},
		&AnimalType{},
		&Breed{},
		&Animal{},
		&Cart{},
		&Order{},
		&PaymentRequest{},
		&Transaction{},
		&CallbackMetadata{},
		&CallbackLog{},
		&Notification{},
		&RevokedToken{},
	}
}
