package serve

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware applies the permissive browser policy the API has always
// shipped with: any origin, and preflight OPTIONS answered with 200 for every
// path.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
