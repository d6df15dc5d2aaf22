package middleware

import (
	"net/http"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/logger"
	"github.com/gin-gonic/gin"
)

// LinkVerifier checks retrieval link tokens
type LinkVerifier interface {
	Enabled() bool
	Verify(token, contractID string) error
}

// LinkToken requires a valid "token" query parameter issued for the
// requested "contractId". Requests pass through when the verifier is disabled.
func LinkToken(verifier LinkVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil || !verifier.Enabled() {
			c.Next()
			return
		}

		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Link token required"})
			return
		}

		contractID := c.Query("contractId")
		if err := verifier.Verify(token, contractID); err != nil {
			ctx := logger.WithContractID(c.Request.Context(), contractID)
			logger.Warn(ctx, "link token rejected", "error", err, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired link"})
			return
		}

		c.Next()
	}
}
