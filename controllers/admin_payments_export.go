package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/services"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

// GET /admin/payments/unreconciled
//
// Lists acknowledged pushes that never got a callback as an Excel sheet.
// older_than (a Go duration such as 30m) overrides the configured cutoff.
func DownloadUnreconciledPayments(c *gin.Context) {
	cutoff := deps.ReconcileCutoff
	if v := c.Query("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			utils.BadRequest(c, "Invalid older_than", "older_than must be a duration such as 30m or 2h")
			return
		}
		cutoff = d
	}
	now := time.Now()

	requests, err := services.FindUnreconciled(c.Request.Context(), config.DB, now.Add(-cutoff))
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load payment requests", err))
		return
	}
	utils.LogDebug("Exporting %d unreconciled payment requests", len(requests))

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Unreconciled Payments")
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to create Excel sheet", err))
		return
	}

	sheet.AddRow().AddCell().SetString(utils.AppName + " - Unreconciled M-Pesa Payments")
	sheet.AddRow().AddCell().SetString(fmt.Sprintf("Generated %s | pushes older than %s with no callback",
		now.Format("2006-01-02 15:04"), cutoff))
	sheet.AddRow()

	headers := []string{"Request ID", "Order", "User ID", "Merchant Request ID", "Checkout Request ID", "Response Code", "Customer Message", "Requested At", "Age (minutes)"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	for _, pr := range requests {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(pr.ID))
		row.AddCell().SetString(pr.OrderID)
		row.AddCell().SetInt(int(pr.UserID))
		row.AddCell().SetString(pr.MerchantRequestID)
		row.AddCell().SetString(pr.CheckoutRequestID)
		row.AddCell().SetString(pr.ResponseCode)
		row.AddCell().SetString(pr.CustomerMessage)
		row.AddCell().SetString(pr.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetInt(int(now.Sub(pr.CreatedAt).Minutes()))
	}

	sheet.AddRow()
	total := sheet.AddRow()
	total.AddCell().SetString("Total")
	total.AddCell().SetInt(len(requests))

	filename := fmt.Sprintf("unreconciled_payments_%s.xlsx", now.Format("20060102_1504"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write unreconciled payments export: %v", err)
	}
}
