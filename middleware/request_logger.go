package middleware

import (
	"net/url"
	"time"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/logger"
	"github.com/gin-gonic/gin"
)

// redactedParams are query parameters never written to the access log
var redactedParams = []string{"token"}

// RequestLogger logs incoming requests and their responses
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.Query())

		// Process request
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if query != "" {
			attrs = append(attrs, "query", query)
		}

		ctx := c.Request.Context()
		if contractID := c.Query("contractId"); contractID != "" {
			ctx = logger.WithContractID(ctx, contractID)
		}

		// Log with appropriate level based on status code
		switch {
		case status >= 500:
			logger.Error(ctx, "request completed", attrs...)
		case status >= 400:
			logger.Warn(ctx, "request completed", attrs...)
		default:
			logger.Info(ctx, "request completed", attrs...)
		}
	}
}

func redactQuery(values url.Values) string {
	for _, name := range redactedParams {
		if values.Has(name) {
			values.Set(name, "REDACTED")
		}
	}
	return values.Encode()
}
