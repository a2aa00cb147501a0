package controllers

import (
	"net/http"
	"strings"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/middleware"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// POST /login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogDebug("Login attempt failed - invalid request format: %v", err)
		utils.BadRequest(c, utils.ErrInvalidCredentials, utils.BindingErrors(err))
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := config.DB.WithContext(c.Request.Context()).Preload("Roles").Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.LogWarn("Login attempt failed - user not found: %s", req.Email)
		utils.Unauthorized(c, utils.ErrInvalidCredentials)
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		utils.LogWarn("Login attempt failed - invalid password for user: %s", req.Email)
		utils.Unauthorized(c, utils.ErrInvalidCredentials)
		return
	}

	pair, err := utils.GenerateTokenPair(&user)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to generate token", err))
		return
	}
	utils.LogInfo("User logged in successfully: %s", req.Email)
	utils.Success(c, utils.MsgLoginSuccess, gin.H{
		"user":   toUserResponse(&user),
		"tokens": pair,
	})
}

// POST /refresh-token
//
// The presented refresh token is revoked, so each one can be used once.
func RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. refresh_token is required", utils.BindingErrors(err))
		return
	}
	ctx := c.Request.Context()

	claims, err := utils.ParseToken(req.RefreshToken, utils.TokenRefresh)
	if err != nil {
		utils.LogDebug("Refresh rejected: %v", err)
		utils.Unauthorized(c, utils.ErrInvalidToken)
		return
	}
	revoked, err := deps.Revocations.IsRevoked(ctx, claims.Id)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to check token", err))
		return
	}
	if revoked {
		utils.LogWarn("Revoked refresh token %s presented for user %d", claims.Id, claims.UserID)
		utils.Unauthorized(c, utils.ErrInvalidToken)
		return
	}

	var user models.User
	if err := config.DB.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		utils.Unauthorized(c, "User not found")
		return
	}
	if err := deps.Revocations.Revoke(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to rotate token", err))
		return
	}

	pair, err := utils.GenerateTokenPair(&user)
	if err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to generate token", err))
		return
	}
	utils.Success(c, "Token refreshed", pair)
}

// POST /logout
//
// Revokes the access token used for the call and, when sent, the refresh token too.
func Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	if err := deps.Revocations.Revoke(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		utils.RespondError(c, utils.NewAppError(http.StatusInternalServerError, "Failed to log out", err))
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		refresh, err := utils.ParseToken(req.RefreshToken, utils.TokenRefresh)
		if err == nil && refresh.UserID == claims.UserID {
			if err := deps.Revocations.Revoke(ctx, refresh.Id, refresh.ExpiresAtTime()); err != nil {
				utils.LogError("Failed to revoke refresh token for user %d: %v", claims.UserID, err)
			}
		}
	}

	utils.LogInfo("User %d logged out", claims.UserID)
	utils.Success(c, utils.MsgLogoutSuccess, nil)
}
