package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/xerr"
)

const HeaderAdminToken = "X-Admin-Token"

// AdminToken 运维接口静态 token 校验，token 未配置时一律拒绝
func AdminToken(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAdminToken)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			common.Fail(c, http.StatusUnauthorized, xerr.Unauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}
