package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
)

// GET /orders/:id/receipt returns a PDF payment receipt for a paid order.
func DownloadReceipt(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	db := config.DB.WithContext(c.Request.Context())

	var order models.Order
	err := db.Preload("Animal.Farmer.User").Where("id = ? AND user_id = ?", orderID, user.ID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load order", err))
		return
	}
	if !isPaid(order.Status) {
		utils.BadRequest(c, "Order has not been paid", order.Status)
		return
	}

	var txn models.Transaction
	err = db.Preload("CallbackMetadata").
		Joins("JOIN payment_requests ON payment_requests.id = transactions.payment_request_id").
		Where("payment_requests.order_id = ? AND transactions.result_code = ?", order.OrderID, models.ResultCodeSuccess).
		Order("transactions.id DESC").
		First(&txn).Error
	if err != nil {
		utils.LogError("Paid order %s has no successful transaction: %v", order.OrderID, err)
		utils.RespondError(c, utils.NotFoundError("Payment record not found", nil))
		return
	}

	pdf, err := renderReceipt(user, &order, &txn)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to generate receipt", err))
		return
	}
	utils.LogInfo("Receipt generated for order %s", order.OrderID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", order.OrderID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func isPaid(status string) bool {
	for _, s := range models.PaidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func renderReceipt(buyer *models.User, order *models.Order, txn *models.Transaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, utils.AppName)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, "Livestock marketplace")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(80, 8, "Order: "+order.OrderID)
	pdf.Cell(80, 8, "Order Date: "+order.CreatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(8)
	pdf.Cell(80, 8, "Status: "+utils.StatusLabel(order.Status))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(90, 8, "Billed To:")
	pdf.Cell(90, 8, "Sold By:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	farm := order.Animal.Farmer
	pdf.Cell(90, 7, buyer.Username)
	pdf.Cell(90, 7, farm.FarmName)
	pdf.Ln(6)
	pdf.Cell(90, 7, buyer.Email)
	pdf.Cell(90, 7, farm.Location)
	pdf.Ln(6)
	pdf.Cell(90, 7, "Phone: "+buyer.Phone)
	pdf.Cell(90, 7, farm.User.Email)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(80, 8, "Animal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(80, 8, order.Animal.Description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, fmt.Sprint(order.Quantity), "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, order.Animal.Price.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, order.Total().StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "M-Pesa Payment")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	if md := txn.CallbackMetadata; md != nil {
		pdf.CellFormat(60, 7, "Amount Paid (KES):", "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, md.Amount.StringFixed(2), "", 1, "L", false, 0, "")
		pdf.CellFormat(60, 7, "Receipt Number:", "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, md.MpesaReceiptNumber, "", 1, "L", false, 0, "")
		pdf.CellFormat(60, 7, "Paid From:", "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, md.PhoneNumber, "", 1, "L", false, 0, "")
		pdf.CellFormat(60, 7, "Paid At:", "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, formatTransactionDate(md.TransactionDate), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(60, 7, "Checkout Request:", "", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, txn.CheckoutRequestID, "", 1, "L", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 12)
	pdf.Cell(0, 10, "Thank you for buying on "+utils.AppName+"!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatTransactionDate renders the gateway's YYYYMMDDHHMMSS timestamp.
func formatTransactionDate(v int64) string {
	t, err := time.Parse("20060102150405", fmt.Sprint(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return t.Format("2006-01-02 15:04:05")
}
