package routes

import (
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/gin-gonic/gin"
)

func initUserRoutes(router *gin.Engine, auth, limit gin.HandlerFunc) {
	router.POST("/farmer-sign-up", controllers.FarmerSignUp)
	router.POST("/buyer-sign-up", controllers.BuyerSignUp)
	router.POST("/login", limit, controllers.Login)
	router.POST("/refresh-token", limit, controllers.RefreshToken)

	user := router.Group("/")
	user.Use(auth)
	{
		user.POST("/logout", controllers.Logout)
		user.GET("/user-profile", controllers.GetUserProfile)
		user.PUT("/notifications/:id", controllers.RespondToNotification)
		user.GET("/notifications/:farmer_id", controllers.ListNotifications)
	}
}
