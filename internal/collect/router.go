package collect

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// maxSymbolLen bounds the length of a currency symbol.
const maxSymbolLen = 10

// ValidSymbol reports whether s is a non-empty ASCII alphanumeric
// currency symbol of at most ten characters.
func ValidSymbol(s string) bool {
	if s == "" || len(s) > maxSymbolLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// NewRouter builds the collector's gin engine.
func NewRouter(reg *Registry, logger *slog.Logger) (*gin.Engine, error) {
	if reg.Symbols() == nil {
		return nil, errors.New("registry has no symbol set")
	}

	e := gin.New()
	e.Use(requestLogger(logger), gin.Recovery())

	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	v1 := e.Group("/v1")
	{
		v1.GET("/collect/add", GinHandler(AddTask(reg)))
		v1.GET("/collect/remove", GinHandler(RemoveTask(reg)))
		v1.GET("/collect/update", GinHandler(UpdateTask(reg)))
		v1.GET("/collect/status", GinHandler(Status(reg)))

		v1.POST("/collect", GinHandler(AddTask(reg)))
		v1.PUT("/collect", GinHandler(UpdateTask(reg)))
		v1.DELETE("/collect", GinHandler(RemoveTask(reg)))

		symbols := reg.Symbols()
		v1.GET("/symbols", GinHandler(ListSymbols(symbols)))
		v1.GET("/symbols/add", GinHandler(AddSymbol(symbols)))
		v1.GET("/symbols/update", GinHandler(UpdateSymbol(symbols)))
		v1.GET("/symbols/remove", GinHandler(RemoveSymbol(symbols)))
		v1.POST("/symbols", GinHandler(AddSymbol(symbols)))
		v1.PUT("/symbols", GinHandler(UpdateSymbol(symbols)))
		v1.DELETE("/symbols", GinHandler(RemoveSymbol(symbols)))

		v1.GET("/ws/subscribe", GinHandler(Subscribe(reg)))
		v1.POST("/ws/subscribe", GinHandler(Subscribe(reg)))
		v1.GET("/ws/unsubscribe", GinHandler(Unsubscribe(reg)))
		v1.POST("/ws/unsubscribe", GinHandler(Unsubscribe(reg)))
	}

	return e, nil
}

// requestLogger logs every request at debug level, and failed requests
// at warn.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
