package handlers

import (
	"net/http"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandlers exposes the onboarding flows over HTTP
type AuthHandlers struct {
	svc domain.OnboardingService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(svc domain.OnboardingService) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// SendCodeRequest asks for a verification code
type SendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	OTP           string `json:"otp" binding:"required"`
	ReferralInput string `json:"referralInput"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GoogleRequest carries a Google ID token
type GoogleRequest struct {
	Credential    string `json:"credential" binding:"required"`
	ReferralInput string `json:"referralInput"`
}

// ResetRequest represents a password reset
type ResetRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// SendOTP handles registration code requests
func (h *AuthHandlers) SendOTP(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := h.svc.SendRegistrationCode(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "OTP sent to email",
			"expires_at": issue.ExpiresAt.UTC(),
		},
	})
}

// Register handles account creation
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.OTP, req.ReferralInput)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": authPayload(result)})
}

// Login handles email and password sign-in
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": authPayload(result)})
}

// Google handles federated sign-in and sign-up
func (h *AuthHandlers) Google(c *gin.Context) {
	var req GoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.FederatedSignIn(c.Request.Context(), req.Credential, req.ReferralInput)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": authPayload(result)})
}

// SendResetOTP handles password reset code requests
func (h *AuthHandlers) SendResetOTP(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := h.svc.SendResetCode(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "OTP sent to email",
			"expires_at": issue.ExpiresAt.UTC(),
		},
	})
}

// ResetPassword handles credential replacement
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Password reset successfully",
		},
	})
}

// Me handles getting the caller's profile (requires authentication)
func (h *AuthHandlers) Me(c *gin.Context) {
	handle := c.GetString(middleware.HandleKey)
	if handle == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Handle not found in context"})
		return
	}

	account, err := h.svc.Profile(c.Request.Context(), handle)
	if err != nil {
		writeError(c, err)
		return
	}

	referrals := make([]gin.H, 0, len(account.Referrals))
	for _, r := range account.Referrals {
		referrals = append(referrals, gin.H{
			"handle":     r.ReferredHandle,
			"created_at": r.CreatedAt,
		})
	}

	profile := accountPayload(account)
	profile["referrals"] = referrals
	profile["created_at"] = account.CreatedAt
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// Logout handles user logout (requires authentication)
func (h *AuthHandlers) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID not found"})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Logged out successfully",
		},
	})
}

func authPayload(result *domain.AuthResult) gin.H {
	return gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_in": result.ExpiresIn,
		"user":       accountPayload(result.Account),
	}
}

func accountPayload(account *domain.Account) gin.H {
	return gin.H{
		"user_id":       account.Handle,
		"email":         account.Email,
		"provider":      account.Provider,
		"coins":         account.Coins,
		"referral_code": account.ReferralCode,
		"referred_by":   account.ReferredBy,
	}
}
