package routes

import (
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/Govind-619/FarmMart/middleware"
	"github.com/Govind-619/FarmMart/revocation"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes the Gin router with every route. limiter guards the
// login and payment initiation endpoints; nil disables rate limiting.
func SetupRouter(store revocation.Store, limiter *utils.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	limit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = utils.RateLimitMiddleware(limiter)
	}
	auth := middleware.AuthMiddleware(store)

	// The gateway posts here without credentials.
	router.POST("/callback-url", controllers.MpesaCallback)

	initUserRoutes(router, auth, limit)
	initMarketRoutes(router, auth, limit)
	initAdminRoutes(router, auth)

	return router
}
