package middleware

import (
	"strings"

	"github.com/Govind-619/FarmMart/config"
	"github.com/Govind-619/FarmMart/models"
	"github.com/Govind-619/FarmMart/revocation"
	"github.com/Govind-619/FarmMart/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware accepts a Bearer access token that has not been revoked and
// puts the user and the token claims on the context.
func AuthMiddleware(store revocation.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogDebug("Missing Authorization header on %s", c.Request.URL.Path)
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := utils.ParseToken(tokenString, utils.TokenAccess)
		if err != nil {
			utils.LogDebug("Invalid token: %v", err)
			utils.Unauthorized(c, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		revoked, err := store.IsRevoked(c.Request.Context(), claims.Id)
		if err != nil {
			utils.LogError("Revocation lookup for token %s failed: %v", claims.Id, err)
			utils.InternalServerError(c, utils.ErrInternalServer, nil)
			c.Abort()
			return
		}
		if revoked {
			utils.Unauthorized(c, "Token has been revoked")
			c.Abort()
			return
		}

		var user models.User
		if err := config.DB.WithContext(c.Request.Context()).Preload("Roles").First(&user, claims.UserID).Error; err != nil {
			utils.LogWarn("Token for unknown user %d: %v", claims.UserID, err)
			utils.Unauthorized(c, "User not found")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserKey, user)
		c.Set(utils.ContextClaimsKey, claims)
		c.Next()
	}
}

// RequireRole lets the request through when the authenticated user holds any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.LogError("RequireRole used without AuthMiddleware on %s", c.Request.URL.Path)
			utils.Unauthorized(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, role := range roles {
			if user.HasRole(role) {
				c.Next()
				return
			}
		}
		utils.LogWarn("User %d denied %s: needs one of %v", user.ID, c.Request.URL.Path, roles)
		utils.Forbidden(c, utils.ErrForbidden)
		c.Abort()
	}
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(utils.ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(models.User)
	if !ok {
		return nil, false
	}
	return &user, true
}

// CurrentClaims returns the access token claims set by AuthMiddleware.
func CurrentClaims(c *gin.Context) (*utils.Claims, bool) {
	v, exists := c.Get(utils.ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
