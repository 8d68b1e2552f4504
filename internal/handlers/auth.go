package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"

	"coopfund/internal/auth"
	"coopfund/internal/services"
	"coopfund/internal/utils"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	members *services.MemberService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(members *services.MemberService) *AuthHandler {
	return &AuthHandler{
		members: members,
	}
}

// WalletLogin authenticates a member by their Solana wallet address and
// signature. First-time wallets are registered as new members, which also
// mints the onboarding grant.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Nickname      string `json:"nickname"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 1. Verify Wallet Address Format
	if len(req.WalletAddress) < 32 || len(req.WalletAddress) > 44 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	// 2. Verify Signature
	// The message expected to be signed. In a real app, this should include a nonce or timestamp to prevent replay attacks.
	message := []byte("Sign this message to authenticate with COOPFUND")

	// Decode wallet address (Public Key) from Base58
	pubKey, err := base58.Decode(req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid public key format"})
		return
	}

	// Decode signature. Wallets usually return base58; fall back to hex.
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		sig, err = hex.DecodeString(req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature format"})
			return
		}
	}

	if !ed25519.Verify(pubKey, message, sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	// 3. Process Login/Registration
	member, err := h.members.GetByWallet(c.Request.Context(), req.WalletAddress)
	if errors.Is(err, services.ErrNotFound) {
		nickname := req.Nickname
		if nickname == "" {
			nickname, err = utils.GenerateNickname()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate nickname"})
				return
			}
		}
		member, err = h.members.RegisterMember(c.Request.Context(), req.WalletAddress, nickname)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
		return
	}

	token, err := auth.GenerateToken(member.WalletAddress, member.Nickname)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"member": member,
	})
}

// Logout handles member logout (stateless JWT — client-side only)
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

// GetMe returns the currently authenticated member's profile
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	member, err := h.members.GetByWallet(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member": member,
	})
}
