package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"loanDesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	corsAllowHeaders = strings.Join([]string{"Content-Type", "Content-Length", "Accept", "Authorization", "Origin", "Cache-Control", "X-Requested-With"}, ", ")
	corsAllowMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
)

// RateLimit ограничивает частоту обращений к калькуляторам по IP клиента
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Take(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(decision.RetryAfter(time.Now())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "слишком много запросов, повторите позже",
				"reset": decision.ResetAt,
			})
			return
		}

		c.Next()
	}
}

// Logger пишет структурированный лог запроса и метрики маршрута
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		elapsed := time.Since(started)

		// Для метрик берем шаблон маршрута, чтобы не плодить метки
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		utils.RecordRequest(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("client", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			utils.Logger().Error("calculator request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		utils.Logger().Info("calculator request", fields...)
	}
}

// Recovery превращает панику обработчика в ответ 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				utils.Logger().Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()

		c.Next()
	}
}

// CORSMiddleware разрешает вызовы калькуляторов с любого origin
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		header.Set("Access-Control-Allow-Methods", corsAllowMethods)

		// Preflight не доходит до обработчиков
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
