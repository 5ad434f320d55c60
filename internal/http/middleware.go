package http

import "github.com/gin-gonic/gin"

// apiHeadersMiddleware marks every response as non-cacheable JSON that must
// not be framed or sniffed.
func apiHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
