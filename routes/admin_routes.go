package routes

import (
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/Govind-619/FarmMart/middleware"
	"github.com/Govind-619/FarmMart/models"
	"github.com/gin-gonic/gin"
)

func initAdminRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	admin := router.Group("/admin")
	admin.Use(auth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/payments/unreconciled", controllers.DownloadUnreconciledPayments)
	}
}
