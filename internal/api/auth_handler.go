package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/auth"
	"github.com/wfunc/fod-bridge/internal/errors"
	"go.uber.org/zap"
)

// TokenRequest 令牌请求
type TokenRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse 令牌响应
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	tokens       *auth.TokenManager
	passwordHash string
	logger       *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(tokens *auth.TokenManager, passwordHash string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, passwordHash: passwordHash, logger: log}
}

// IssueToken 使用管理员口令换取令牌
// @Summary 获取管理员令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "管理员口令"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.passwordHash == "" {
		fail(c, errors.New(errors.ErrServiceUnavailable, "admin login disabled"))
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	valid, err := auth.VerifyPassword(req.Password, h.passwordHash)
	if err != nil {
		h.logger.Error("管理员口令哈希格式错误", zap.Error(err))
		fail(c, errors.Wrap(err, errors.ErrConfigValidate, "security.admin_password_hash"))
		return
	}
	if !valid {
		h.logger.Warn("管理员口令错误", zap.String("ip", c.ClientIP()))
		fail(c, errors.New(errors.ErrAuthentication))
		return
	}

	token, expiresAt, err := h.tokens.Issue("admin", auth.RoleAdmin)
	if err != nil {
		fail(c, errors.Wrap(err, errors.ErrEncryption))
		return
	}

	h.logger.Info("已签发管理员令牌", zap.String("ip", c.ClientIP()), zap.Time("expires_at", expiresAt))
	ok(c, TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}
