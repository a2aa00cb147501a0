package controllers

import (
	"strconv"
	"time"

	"github.com/Govind-619/FarmMart/middleware"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/revocation"
	"github.com/Govind-619/FarmMart/services"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
)

// Deps are the services the handlers call into. main builds them once and
// passes them to Init before the router starts.
type Deps struct {
	Payments    *services.PaymentService
	Callbacks   *services.CallbackService
	Orders      *services.OrderService
	Checkout    *services.CheckoutService
	Revocations revocation.Store
	// ReconcileCutoff is the default age after which a push with no callback is reported.
	ReconcileCutoff time.Duration
}

var deps Deps

func Init(d Deps) {
	if d.ReconcileCutoff <= 0 {
		d.ReconcileCutoff = 15 * time.Minute
	}
	deps = d
}

// currentUser writes a 401 and returns false when AuthMiddleware did not run.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.LogError("User not found in context on %s", c.Request.URL.Path)
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

// uintParam parses a positive numeric path parameter, writing a 400 when it is not one.
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+name, c.Param(name))
		return 0, false
	}
	return uint(id), true
}
