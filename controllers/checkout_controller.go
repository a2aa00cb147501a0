package controllers

import (
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// POST /checkout
//
// Each returned order_id is what the buyer passes to /initiate-payment.
func Checkout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := deps.Checkout.Checkout(c.Request.Context(), user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total())
	}
	utils.Created(c, "Orders created", gin.H{
		"orders": toOrderResponses(orders),
		"total":  total,
	})
}
