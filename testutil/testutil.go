// Package testutil builds throwaway sqlite databases and fixtures for tests.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:farmart_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection serializes writers the way a single sqlite file requires
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var userSeq atomic.Int64

// Fixtures creates rows in one test database.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB

	mu    sync.Mutex
	roles map[string]models.Role
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, roles: map[string]models.Role{}}
}

func (f *Fixtures) role(name string) models.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.roles[name]; ok {
		return r
	}
	var r models.Role
	if err := f.db.Where("role_name = ?", name).First(&r).Error; err != nil {
		f.t.Fatalf("role %s: %v", name, err)
	}
	f.roles[name] = r
	return r
}

// User creates a user holding the given roles. passwordHash may be empty.
func (f *Fixtures) User(phone, passwordHash string, roles ...string) *models.User {
	f.t.Helper()
	n := userSeq.Add(1)
	u := &models.User{
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@farmart.test", n),
		Password: passwordHash,
		Phone:    phone,
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, f.role(r))
	}
	if err := f.db.Create(u).Error; err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	return u
}

// Buyer creates a buyer with a registered phone number.
func (f *Fixtures) Buyer() *models.User {
	return f.User("0712345678", "", models.RoleBuyer)
}

// Farmer creates a farmer user and its profile.
func (f *Fixtures) Farmer() (*models.User, *models.FarmersProfile) {
	f.t.Helper()
	u := f.User("0722000111", "", models.RoleFarmer)
	p := &models.FarmersProfile{UserID: u.ID, FarmName: "Green Acres", Location: "Nakuru"}
	if err := f.db.Create(p).Error; err != nil {
		f.t.Fatalf("create farmer profile: %v", err)
	}
	return u, p
}

func (f *Fixtures) Animal(farmer *models.FarmersProfile, price int64) *models.Animal {
	f.t.Helper()
	a := &models.Animal{
		FarmerID:    farmer.ID,
		Age:         2,
		Price:       decimal.NewFromInt(price),
		Description: "Friesian heifer",
		IsAvailable: true,
	}
	if err := f.db.Create(a).Error; err != nil {
		f.t.Fatalf("create animal: %v", err)
	}
	return a
}

func (f *Fixtures) Order(buyer *models.User, animal *models.Animal, ref string, quantity int, status string) *models.Order {
	f.t.Helper()
	o := &models.Order{
		UserID:   buyer.ID,
		AnimalID: animal.ID,
		OrderID:  ref,
		Quantity: quantity,
		Status:   status,
	}
	if err := f.db.Create(o).Error; err != nil {
		f.t.Fatalf("create order: %v", err)
	}
	return o
}

func (f *Fixtures) PaymentRequest(order *models.Order, merchantID, checkoutID string) *models.PaymentRequest {
	f.t.Helper()
	pr := &models.PaymentRequest{
		OrderID:           order.OrderID,
		UserID:            order.UserID,
		MerchantRequestID: merchantID,
		CheckoutRequestID: checkoutID,
		ResponseCode:      "0",
	}
	if err := f.db.Create(pr).Error; err != nil {
		f.t.Fatalf("create payment request: %v", err)
	}
	return pr
}

func (f *Fixtures) Notification(sender, recipient *models.User, order *models.Order) *models.Notification {
	f.t.Helper()
	n := &models.Notification{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		OrderID:     order.ID,
		Message:     "Order " + order.OrderID + " has been paid",
		Status:      models.NotificationStatusPending,
	}
	if err := f.db.Create(n).Error; err != nil {
		f.t.Fatalf("create notification: %v", err)
	}
	return n
}

// OrderStatus reloads an order's status.
func (f *Fixtures) OrderStatus(id uint) string {
	f.t.Helper()
	var o models.Order
	if err := f.db.First(&o, id).Error; err != nil {
		f.t.Fatalf("reload order: %v", err)
	}
	return o.Status
}
