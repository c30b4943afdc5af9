package api

import (
	"math"
	"net/http"
	"strconv"

	goerrors "github.com/go-errors/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ksred/job-tracker/internal/utils"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	msgTooMany      = "Too many requests, please try again later."
)

// RequestIDMiddleware tags each request with an id, reusing the caller's
// X-Request-ID when present, and attaches a request-scoped logger to the context.
func RequestIDMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		reqLogger := utils.WithField(logger, requestIDKey, requestID)
		c.Request = c.Request.WithContext(utils.WithContext(c.Request.Context(), reqLogger))

		c.Next()
	}
}

// RecoveryMiddleware turns a panic into a 500 error envelope. The stack is
// included outside production.
func RecoveryMiddleware(logger zerolog.Logger, includeStack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := goerrors.Wrap(r, 2)
				logger.Error().
					Str("path", c.Request.URL.Path).
					Str(requestIDKey, c.GetString(requestIDKey)).
					Str("panic", err.Error()).
					Str("stack", string(err.Stack())).
					Msg("Recovered from panic")

				resp := errorEnvelope(http.StatusInternalServerError, msgInternal)
				if includeStack {
					resp.Stack = err.ErrorStack()
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()
	}
}

// RateLimitMiddleware enforces the per-IP budget and reports it in the
// RateLimit-* headers on every response it sees.
func RateLimitMiddleware(limiter *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Allow(c.ClientIP())

		c.Header("RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(math.Ceil(result.Reset.Seconds()))))

		if !result.Allowed {
			rateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorEnvelope(http.StatusTooManyRequests, msgTooMany))
			return
		}

		c.Next()
	}
}
