package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"greencloud/utils"

	"github.com/gin-gonic/gin"
)

// UserContext reads the caller identity from a header set by the trusted
// fronting proxy and stores it as "user_id".
func UserContext(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(header))
		if raw == "" {
			utils.Error(c, http.StatusUnauthorized, "missing user identity")
			c.Abort()
			return
		}

		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || userID == 0 {
			utils.Error(c, http.StatusUnauthorized, "invalid user identity")
			c.Abort()
			return
		}

		c.Set("user_id", uint(userID))
		c.Next()
	}
}
