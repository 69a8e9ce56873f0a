package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/auth"
	"github.com/wfunc/fod-bridge/internal/errors"
)

const (
	ctxSubject = "subject"
	ctxRole    = "role"
)

// TokenValidator 令牌校验
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireRole 需要认证且角色匹配
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abort(c, errors.New(errors.ErrAuthentication, "缺少认证令牌"))
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			code := errors.ErrTokenInvalid
			if err == auth.ErrExpiredToken {
				code = errors.ErrTokenExpired
			}
			abort(c, errors.Wrap(err, code))
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			abort(c, errors.New(errors.ErrAuthorization))
			return
		}

		c.Set(ctxSubject, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.NewErrorResponse(err, c.GetHeader("X-Request-ID")))
}

// extractToken 从 Authorization: Bearer 或 X-Access-Token 中取令牌
func extractToken(c *gin.Context) string {
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		parts := strings.SplitN(bearer, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.GetHeader("X-Access-Token")
}

// GetSubject 从上下文获取令牌主体
func GetSubject(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxSubject)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
