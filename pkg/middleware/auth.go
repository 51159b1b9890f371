package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/xerr"
)

const ctxKeySession = "session"

// SessionClaims 登录后签发的 JWT，sub 是 twitter user id
type SessionClaims struct {
	Handle           string  `json:"handle"`
	Avatar           string  `json:"avatar,omitempty"`
	FollowersCount   *int64  `json:"followers_count,omitempty"`
	TwitterCreatedAt *string `json:"twitter_created_at,omitempty"`
	AccessToken      string  `json:"access_token,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret    string
	Issuer    string
	ClockSkew time.Duration
}

// JWTAuth 只接受 HS256，失败统一 401
func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(cfg.Secret))
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = time.Minute
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.ClockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			common.Fail(c, http.StatusUnauthorized, xerr.Unauthorized, "missing bearer token")
			c.Abort()
			return
		}
		claims, err := parseSession(parser, secret, raw)
		if err != nil {
			logger.Warn(c.Request.Context(), "session token rejected", zap.Error(err))
			common.Fail(c, http.StatusUnauthorized, xerr.Unauthorized, "invalid session")
			c.Abort()
			return
		}
		c.Set(ctxKeySession, claims)
		c.Next()
	}
}

func parseSession(parser *jwt.Parser, secret []byte, raw string) (*SessionClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &SessionClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

// SessionFrom 取 JWTAuth 写入的会话
func SessionFrom(c *gin.Context) (*SessionClaims, bool) {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*SessionClaims)
	return claims, ok
}

// SignSession 测试和本地调试用
func SignSession(secret string, claims *SessionClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
