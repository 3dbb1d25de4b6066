package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"pdftranslate/models"
)

// AdminTokenHeader 管理接口令牌头
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth 校验管理令牌；未配置令牌时管理接口整体关闭
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(models.ErrAdminDisabled.HTTPStatus(), gin.H{
				"error": "admin access is disabled",
				"code":  models.ErrAdminDisabled,
			})
			return
		}

		provided := c.GetHeader(AdminTokenHeader)
		if provided == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(models.ErrUnauthorized.HTTPStatus(), gin.H{
				"error": "invalid admin token",
				"code":  models.ErrUnauthorized,
			})
			return
		}

		c.Next()
	}
}
