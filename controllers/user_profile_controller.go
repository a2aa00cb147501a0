package controllers

import (
	"errors"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GET /user-profile
func GetUserProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	data := gin.H{"user": toUserResponse(user)}
	if user.HasRole(models.RoleFarmer) {
		var profile models.FarmersProfile
		err := config.DB.WithContext(c.Request.Context()).Where("user_id = ?", user.ID).First(&profile).Error
		switch {
		case err == nil:
			data["farm"] = profile
		case !errors.Is(err, gorm.ErrRecordNotFound):
			utils.RespondError(c, utils.PersistenceError("Failed to load farmer profile", err))
			return
		}
	}
	utils.Success(c, "Profile retrieved", data)
}
