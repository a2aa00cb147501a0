package utils

// Application constants
const (
	AppName = "FarmMart"

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Minimum password length
	MinPasswordLength = 8

	// Maximum password length
	MaxPasswordLength = 32

	// Context key holding the authenticated models.User
	ContextUserKey = "user"

	// Context key holding the parsed access token claims
	ContextClaimsKey = "claims"
)

// Error messages
const (
	ErrInvalidCredentials = "Invalid email or password"
	ErrInvalidToken       = "Invalid or expired token"
	ErrUnauthorized       = "Please login for access"
	ErrForbidden          = "Access forbidden"

	ErrInvalidPhone  = "Phone number must be a valid Kenyan mobile number"
	ErrInvalidAmount = "Amount must be a positive whole number"

	ErrInternalServer = "Internal server error"
)

// Success messages
const (
	MsgLoginSuccess    = "Login successful"
	MsgLogoutSuccess   = "Logout successful"
	MsgRegisterSuccess = "Registration successful"
	MsgCreateSuccess   = "Created successfully"
	MsgUpdateSuccess   = "Updated successfully"
)
