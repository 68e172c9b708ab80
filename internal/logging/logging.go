// Package logging wires logrus, Sentry and the request log middleware.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDKey 存放在 gin.Context 中的请求 ID。
const RequestIDKey = "__request_id"

// New 创建 JSON 格式的 logger。
func New(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// InitSentry 在配置了 DSN 时初始化 Sentry，返回的函数用于退出前 flush。
func InitSentry(dsn, environment string) (func(), error) {
	if strings.TrimSpace(dsn) == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// LogError 记录带上下文的错误，并在 Sentry 启用时上报。
func LogError(logger *logrus.Logger, moduleName, funcName, context string, data any, err error) {
	if err == nil {
		return
	}
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	if logger != nil {
		logger.WithFields(fields).Error(err.Error())
	}

	if hub := sentry.CurrentHub(); hub != nil && hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("module", moduleName)
			scope.SetTag("func", funcName)
			scope.SetExtra("context", context)
			if data != nil {
				scope.SetExtra("data", data)
			}
			hub.CaptureException(err)
		})
	}
}

// RequestLogger 为每个请求分配 ID 并输出访问日志。
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"requestId": requestID,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request completed with errors")
			return
		}
		entry.Info("request completed")
	}
}
