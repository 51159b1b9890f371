package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"redpacket.com/pkg/common"
	"redpacket.com/pkg/logger"
)

const (
	HeaderCountry     = "X-Vercel-IP-Country"
	CodeGeoRestricted = 4030
)

// GeoBlock 按边缘网关写入的国家码拦截，头缺失时放行
func GeoBlock(header string, blocked []string) gin.HandlerFunc {
	if header == "" {
		header = HeaderCountry
	}
	set := make(map[string]struct{}, len(blocked))
	for _, cc := range blocked {
		set[strings.ToUpper(strings.TrimSpace(cc))] = struct{}{}
	}
	return func(c *gin.Context) {
		cc := strings.ToUpper(strings.TrimSpace(c.GetHeader(header)))
		if _, hit := set[cc]; cc != "" && hit {
			logger.Warn(c, "geo blocked",
				zap.String("request_id", common.RequestIDFromGin(c)),
				zap.String("country", cc),
			)
			common.FailReason(c, http.StatusForbidden, CodeGeoRestricted, "region_restricted", "service unavailable in your region")
			c.Abort()
			return
		}
		c.Next()
	}
}
