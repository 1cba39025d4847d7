package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const browserKeyCtx = "browserKey"

// RequestLogger пишет в slog одну запись на запрос; уровень зависит от статуса ответа.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo

		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		log.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("ip", c.ClientIP()),
			slog.String("method", c.Request.Method),
			slog.String("uri", c.Request.RequestURI),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(started)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// Secure выставляет заголовки безопасности.
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает число запросов с одного IP: maxRequests за window.
// Неактивные IP удаляются, пока ctx не отменён.
func RateLimiter(ctx context.Context, maxRequests int, window time.Duration) gin.HandlerFunc {
	store := make(map[string]*visitor)

	var mu sync.Mutex

	go func() {
		expiry := max(window*3, time.Minute)

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range store {
					if time.Since(v.lastSeen) > expiry {
						delete(store, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	r := rate.Every(window / time.Duration(maxRequests))

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		v, ok := store[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(r, maxRequests)}
			store[key] = v
		}
		v.lastSeen = time.Now()
		mu.Unlock()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msgTooManyRequests})
			return
		}

		c.Next()
	}
}

// BrowserSession выдаёт браузеру cookie name со случайным ключом
// и кладёт ключ в контекст запроса.
func BrowserSession(name string, secure bool, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(name)
		if err != nil || uuid.Validate(key) != nil {
			key = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(name, key, int(ttl/time.Second), "/", "", secure, true)
		c.Set(browserKeyCtx, key)

		c.Next()
	}
}

func browserKey(c *gin.Context) string {
	return c.GetString(browserKeyCtx)
}
