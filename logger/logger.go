// Package logger configures the process-wide charmbracelet logger and the gin
// request logger built on top of it.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// New creates a logger writing to w. format is "json" or "text".
func New(w io.Writer, level, format string) *log.Logger {
	opts := log.Options{ReportTimestamp: true, TimeFormat: time.RFC3339}
	if strings.EqualFold(format, "json") {
		opts.Formatter = log.JSONFormatter
	}
	l := log.NewWithOptions(w, opts)
	if lvl, err := log.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// Init builds a stderr logger and installs it as the package default.
func Init(level, format string) *log.Logger {
	l := New(os.Stderr, level, format)
	log.SetDefault(l)
	return l
}

// GinLogger logs one line per request. The user id is included when the auth
// middleware stored one under "user_id".
func GinLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Microsecond),
		}
		if c.FullPath() == "" {
			kv[3] = c.Request.URL.Path
		}
		if uid, ok := c.Get("user_id"); ok {
			kv = append(kv, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			l.Error("request", kv...)
		case status >= 400:
			l.Warn("request", kv...)
		default:
			l.Info("request", kv...)
		}
	}
}
