package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Govind-619/FarmMart/mpesa"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest accepts the amount as a JSON number or string.
type InitiatePaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	OrderID string          `json:"orderId" binding:"required"`
}

// POST /initiate-payment
func InitiatePayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("Invalid initiate-payment body from user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. amount and orderId are required", utils.BindingErrors(err))
		return
	}

	res, err := deps.Payments.Initiate(c.Request.Context(), user, req.OrderID, req.Amount)
	if err != nil {
		var upstream *mpesa.UpstreamError
		if errors.As(err, &upstream) {
			utils.LogWarn("Gateway rejected STK push for order %s: %d %s", req.OrderID, upstream.StatusCode, upstream.Body)
			utils.RawJSON(c, upstream.StatusCode, upstream.Body)
			return
		}
		utils.RespondError(c, err)
		return
	}
	utils.RawJSON(c, res.StatusCode, res.Body)
}

// maxCallbackBody bounds what the unauthenticated callback endpoint will read.
const maxCallbackBody = 64 << 10

// POST /callback-url
//
// The gateway gets a 200 echoing its body whatever happened; anything it could
// not reconcile is in the logs.
func MpesaCallback(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody))
	if err != nil {
		utils.LogError("Failed to read M-Pesa callback body from %s: %v", c.ClientIP(), err)
		c.Status(http.StatusOK)
		return
	}

	// finish reconciling even if the gateway drops the connection
	ctx := context.WithoutCancel(c.Request.Context())
	res := deps.Callbacks.HandleCallback(ctx, raw)
	utils.LogDebug("M-Pesa callback %s: %s", res.CheckoutRequestID, res.Outcome)

	if len(raw) == 0 {
		c.Status(http.StatusOK)
		return
	}
	utils.RawJSON(c, http.StatusOK, raw)
}
