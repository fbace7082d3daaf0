package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/siwx/core"
	"github.com/layer-3/siwx/service"
)

// Handlers contains HTTP handlers for the sign-in and mapping endpoints
type Handlers struct {
	svc    *service.LoginService
	logger *slog.Logger
}

// NewHandlers creates new handlers
func NewHandlers(svc *service.LoginService, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:    svc,
		logger: logger,
	}
}

type prepareRequest struct {
	Address string `json:"address" binding:"required"`
}

type loginRequest struct {
	Address   string `json:"address" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type loginResponse struct {
	Principal     []byte    `json:"principal"`
	PrincipalText string    `json:"principal_text"`
	Address       string    `json:"address"`
	AccessToken   string    `json:"access_token"`
	TokenType     string    `json:"token_type"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type addressRequest struct {
	Principal string `json:"principal" binding:"required"`
}

type principalResponse struct {
	Principal     []byte `json:"principal"`
	PrincipalText string `json:"principal_text"`
}

func invalidRequest(c *gin.Context, err error) {
	writeErrorCode(c, http.StatusBadRequest, "invalid_request", err.Error())
}

// Prepare issues a challenge message for the wallet address
func (h *Handlers) Prepare(c *gin.Context) {
	var req prepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	msg, err := h.svc.PrepareLogin(c.Request.Context(), req.Address)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// Login consumes a signed challenge and returns the bound principal
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Address, req.Nonce, req.Signature)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Principal:     result.Principal.Bytes(),
		PrincipalText: result.Principal.String(),
		Address:       result.Address,
		AccessToken:   result.AccessToken,
		TokenType:     "Bearer",
		ExpiresAt:     result.ExpiresAt.UTC(),
	})
}

// Logout invalidates the bearer token of the request
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), c.GetString(accessTokenKey)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// AddressByPrincipal resolves a base64 principal to its wallet address
func (h *Handlers) AddressByPrincipal(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Principal)
	if err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", core.ErrInvalidPrincipalEncoding, err))
		return
	}

	address, err := h.svc.AddressByPrincipal(c.Request.Context(), raw)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

// PrincipalByAddress resolves a wallet address to its principal
func (h *Handlers) PrincipalByAddress(c *gin.Context) {
	principal, err := h.svc.PrincipalByAddress(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, principalResponse{
		Principal:     principal.Bytes(),
		PrincipalText: principal.String(),
	})
}

// Me returns the principal behind the bearer token
func (h *Handlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		writeErrorCode(c, http.StatusInternalServerError, "internal", "session not found in context")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"principal":      session.Principal.Bytes(),
		"principal_text": session.Principal.String(),
		"address":        session.Address,
		"expires_at":     session.ExpiresAt.UTC(),
	})
}
