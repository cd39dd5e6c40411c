package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"DailyPick/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// AdminClaims 管理接口 JWT 载荷
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignAdminToken 签发 HS256 管理令牌
func SignAdminToken(secret string, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "daily-pick",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyAdminToken(secret, token string) (*AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if c.Role != RoleAdmin {
		return nil, errors.New("role is not admin")
	}
	return c, nil
}

func bearerToken(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminAuth 校验 Authorization: Bearer <SERVICE_KEY 或 admin JWT>
func AdminAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if cfg.ServiceKey != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.ServiceKey)) == 1 {
			c.Set("admin_subject", "service")
			c.Next()
			return
		}
		if cfg.JWTSecret != "" {
			if claims, err := verifyAdminToken(cfg.JWTSecret, tok); err == nil {
				c.Set("admin_subject", claims.Subject)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}
