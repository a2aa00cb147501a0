package controllers

import (
	"errors"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AddToCartRequest struct {
	AnimalID uint `json:"animal_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"omitempty,gte=1"`
}

// POST /cart, POST /add-cart
//
// Adding an animal already in the cart increases its quantity.
func AddToCart(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", utils.BindingErrors(err))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	err := config.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var animal models.Animal
		err := tx.Preload("Farmer").First(&animal, req.AnimalID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFoundError("Animal not found", nil)
		}
		if err != nil {
			return utils.PersistenceError("Failed to load animal", err)
		}
		if !animal.IsAvailable {
			return utils.BadRequestError("Animal is no longer available", nil)
		}
		if animal.Farmer.UserID == user.ID {
			return utils.BadRequestError("You cannot buy your own animal", nil)
		}

		var item models.Cart
		err = tx.Where("user_id = ? AND animal_id = ?", user.ID, req.AnimalID).First(&item).Error
		switch {
		case err == nil:
			item.Quantity += req.Quantity
			err = tx.Save(&item).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.Cart{UserID: user.ID, AnimalID: req.AnimalID, Quantity: req.Quantity}
			err = tx.Create(&item).Error
		}
		if err != nil {
			return utils.PersistenceError("Failed to update cart", err)
		}
		return nil
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	details, err := utils.GetCartDetails(config.DB.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load cart", err))
		return
	}
	utils.LogInfo("User %d added animal %d x%d to cart", user.ID, req.AnimalID, req.Quantity)
	utils.Success(c, "Added to cart", details)
}

// GET /cart
func GetCart(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	details, err := utils.GetCartDetails(config.DB.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load cart", err))
		return
	}
	utils.Success(c, "Cart retrieved", details)
}
