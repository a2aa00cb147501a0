package routes

import (
	"github.com/Govind-619/FarmMart/controllers"
	"github.com/Govind-619/FarmMart/middleware"
	"github.com/Govind-619/FarmMart/models"
	"github.com/gin-gonic/gin"
)

func initMarketRoutes(router *gin.Engine, auth, limit gin.HandlerFunc) {
	router.GET("/animals", controllers.ListAnimals)

	farmer := router.Group("/")
	farmer.Use(auth, middleware.RequireRole(models.RoleFarmer))
	{
		farmer.POST("/animals", controllers.CreateAnimal)
		farmer.POST("/orders/:id/farmer-action", controllers.FarmerAction)
	}

	buyer := router.Group("/")
	buyer.Use(auth, middleware.RequireRole(models.RoleBuyer))
	{
		buyer.POST("/cart", controllers.AddToCart)
		buyer.POST("/add-cart", controllers.AddToCart)
		buyer.GET("/cart", controllers.GetCart)
		buyer.POST("/checkout", controllers.Checkout)
		buyer.GET("/orders", controllers.ListOrders)
		buyer.GET("/orders/:id", controllers.GetOrder)
		buyer.GET("/orders/:id/receipt", controllers.DownloadReceipt)
		buyer.POST("/orders/:id/buyer-action", controllers.BuyerAction)
		buyer.POST("/initiate-payment", limit, controllers.InitiatePayment)
	}
}
