package controllers

import (
	"errors"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateAnimalRequest struct {
	TypeID      *uint           `json:"type_id"`
	BreedID     *uint           `json:"breed_id"`
	Age         int             `json:"age" binding:"gte=0"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description" binding:"required"`
}

// POST /animals
func CreateAnimal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateAnimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", utils.BindingErrors(err))
		return
	}
	if !req.Price.IsPositive() {
		utils.BadRequest(c, "Invalid price", "price must be greater than 0")
		return
	}

	db := config.DB.WithContext(c.Request.Context())
	var profile models.FarmersProfile
	err := db.Where("user_id = ?", user.ID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Forbidden(c, "A farmer profile is required to list animals")
		return
	}
	if err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load farmer profile", err))
		return
	}

	animal := models.Animal{
		FarmerID:    profile.ID,
		TypeID:      req.TypeID,
		BreedID:     req.BreedID,
		Age:         req.Age,
		Price:       req.Price.Round(2),
		Description: utils.SanitizeString(req.Description),
		IsAvailable: true,
	}
	if err := db.Create(&animal).Error; err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to create animal", err))
		return
	}
	animal.Farmer = profile
	utils.LogInfo("Farmer %d listed animal %d at %s", user.ID, animal.ID, animal.Price.StringFixed(2))
	utils.Created(c, utils.MsgCreateSuccess, toAnimalResponse(&animal))
}

// GET /animals lists available animals, newest first. type_id and farmer_id filter the list.
func ListAnimals(c *gin.Context) {
	p := utils.NewPagination(c)
	query := config.DB.WithContext(c.Request.Context()).Model(&models.Animal{}).Where("is_available = ?", true)
	if typeID := c.Query("type_id"); typeID != "" {
		query = query.Where("type_id = ?", typeID)
	}
	if farmerID := c.Query("farmer_id"); farmerID != "" {
		query = query.Where("farmer_id = ?", farmerID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to count animals", err))
		return
	}
	p.SetTotal(total)

	var animals []models.Animal
	if err := query.Preload("Farmer").Order("created_at DESC, id DESC").Scopes(p.Scope).Find(&animals).Error; err != nil {
		utils.RespondError(c, utils.PersistenceError("Failed to load animals", err))
		return
	}
	out := make([]AnimalResponse, 0, len(animals))
	for i := range animals {
		out = append(out, toAnimalResponse(&animals[i]))
	}
	utils.SuccessWithPagination(c, "Animals retrieved", out, p)
}
