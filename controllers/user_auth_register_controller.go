package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRequest represents the sign-up request body. Farm details are only
// read on farmer sign-up.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Phone           string `json:"phone" binding:"required,msisdn"`
	FarmName        string `json:"farm_name"`
	Location        string `json:"location"`
}

// POST /farmer-sign-up
func FarmerSignUp(c *gin.Context) {
	register(c, models.RoleFarmer)
}

// POST /buyer-sign-up
func BuyerSignUp(c *gin.Context) {
	register(c, models.RoleBuyer)
}

func register(c *gin.Context, roleName string) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("Sign-up failed - invalid request format: %v", err)
		utils.BadRequest(c, "Invalid request format", utils.BindingErrors(err))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if valid, msg := utils.ValidateUsername(req.Username); !valid {
		utils.BadRequest(c, "Invalid username", msg)
		return
	}
	if valid, msg := utils.ValidateEmail(req.Email); !valid {
		utils.BadRequest(c, "Invalid email", msg)
		return
	}
	if valid, msg := utils.ValidatePassword(req.Password); !valid {
		utils.BadRequest(c, "Invalid password", msg)
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.BadRequest(c, "Passwords do not match", "Password and confirm password must be the same.")
		return
	}
	phone, err := utils.NormalizeMSISDN(req.Phone)
	if err != nil {
		utils.BadRequest(c, "Invalid phone", utils.ErrInvalidPhone)
		return
	}
	if roleName == models.RoleFarmer && strings.TrimSpace(req.FarmName) == "" {
		utils.BadRequest(c, "Invalid request format", "farm_name is required")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to process password", err))
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Phone:    phone,
	}
	err = config.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("role_name = ?", roleName).First(&role).Error; err != nil {
			return utils.PersistenceError("Role is not configured", err)
		}
		user.Roles = []models.Role{role}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.ConflictError("Username or email is already registered", nil)
			}
			return utils.PersistenceError("Failed to create user", err)
		}
		if roleName != models.RoleFarmer {
			return nil
		}
		profile := models.FarmersProfile{
			UserID:   user.ID,
			FarmName: utils.SanitizeString(req.FarmName),
			Location: utils.SanitizeString(req.Location),
		}
		if err := tx.Create(&profile).Error; err != nil {
			return utils.PersistenceError("Failed to create farmer profile", err)
		}
		return nil
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	pair, err := utils.GenerateTokenPair(&user)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to generate token", err))
		return
	}
	utils.LogInfo("Registered %s %d (%s)", roleName, user.ID, user.Email)
	utils.Created(c, utils.MsgRegisterSuccess, gin.H{
		"user":   toUserResponse(&user),
		"tokens": pair,
	})
}
