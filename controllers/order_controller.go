package controllers

import (
	"errors"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrderActionRequest struct {
	Action string `json:"action" binding:"required"`
}

// POST /orders/:id/farmer-action
func FarmerAction(c *gin.Context) {
	applyOrderAction(c, "farmer")
}

// POST /orders/:id/buyer-action
func BuyerAction(c *gin.Context) {
	applyOrderAction(c, "buyer")
}

func applyOrderAction(c *gin.Context, actor string) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req OrderActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. action is required", utils.BindingErrors(err))
		return
	}

	var (
		order *models.Order
		err   error
	)
	if actor == "farmer" {
		order, err = deps.Orders.ApplyFarmerAction(c.Request.Context(), user, orderID, req.Action)
	} else {
		order, err = deps.Orders.ApplyBuyerAction(c.Request.Context(), user, orderID, req.Action)
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Order updated", toOrderResponse(order))
}

// GET /orders
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	p := utils.NewPagination(c)
	query := config.DB.WithContext(c.Request.Context()).Model(&models.Order{}).Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to count orders", err))
		return
	}
	p.SetTotal(total)

	var orders []models.Order
	if err := query.Preload("Animal").Order("created_at DESC, id DESC").Scopes(p.Scope).Find(&orders).Error; err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load orders", err))
		return
	}
	utils.SuccessWithPagination(c, "Orders retrieved", toOrderResponses(orders), p)
}

// GET /orders/:id
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var order models.Order
	err := config.DB.WithContext(c.Request.Context()).Preload("Animal.Farmer").
		Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load order", err))
		return
	}
	utils.Success(c, "Order retrieved", gin.H{
		"order":  toOrderResponse(&order),
		"animal": toAnimalResponse(&order.Animal),
	})
}
