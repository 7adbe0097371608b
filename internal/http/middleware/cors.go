package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// CORS allows cross-origin calls from the listed origins. Credentials are
// allowed only when every origin is named; a "*" entry turns them off.
func CORS(origins []string) gin.HandlerFunc {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: credentials,
	})

	return func(c *gin.Context) {
		co.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
