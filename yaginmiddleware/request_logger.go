package yaginmiddleware

import (
	"time"

	"github.com/YaCodeDev/GoYaTgBot/yalogger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyLogger is where RequestLogger stores the request-scoped logger.
const ContextKeyLogger = "yalogger"

// RequestLogger gives every request a random request id, stores a logger
// carrying it in the gin context and logs the outcome once the request is done.
type RequestLogger struct {
	Log yalogger.Logger
}

func NewRequestLogger(log yalogger.Logger) *RequestLogger {
	return &RequestLogger{Log: log}
}

func (r *RequestLogger) Handle(c *gin.Context) {
	start := time.Now()

	log := r.Log.WithRequestUUID(uuid.New())

	c.Set(ContextKeyLogger, log)
	c.Next()

	log = log.WithFields(map[string]any{
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
		"route":   c.FullPath(),
	})

	if c.Writer.Status() >= 500 {
		log.Warn("Webhook request failed")

		return
	}

	log.Debug("Webhook request served")
}

// LoggerFromContext returns the logger stored by RequestLogger, or fallback.
func LoggerFromContext(c *gin.Context, fallback yalogger.Logger) yalogger.Logger {
	value, ok := c.Get(ContextKeyLogger)
	if !ok {
		return fallback
	}

	log, ok := value.(yalogger.Logger)
	if !ok {
		return fallback
	}

	return log
}
