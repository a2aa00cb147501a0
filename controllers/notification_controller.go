package controllers

import (
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
)

type NotificationResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

// PUT /notifications/:id
func RespondToNotification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req NotificationResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. response is required", utils.BindingErrors(err))
		return
	}

	n, err := deps.Orders.RespondToNotification(c.Request.Context(), user, id, req.Response)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Notification updated", n)
}

// GET /notifications/:farmer_id
//
// Only the recipient can read their own notifications.
func ListNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	recipientID, ok := uintParam(c, "farmer_id")
	if !ok {
		return
	}
	if recipientID != user.ID {
		utils.LogWarn("User %d tried to read notifications of user %d", user.ID, recipientID)
		utils.Forbidden(c, utils.ErrForbidden)
		return
	}

	p := utils.NewPagination(c)
	notes, err := deps.Orders.ListNotifications(c.Request.Context(), recipientID, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Notifications retrieved", notes, p)
}
