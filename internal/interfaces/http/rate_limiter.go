package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
)

// RateLimiterConfig tasa y ráfaga por IP de cliente.
type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter mantiene un token bucket por IP; los buckets inactivos expiran.
type RateLimiter struct {
	cfg      RateLimiterConfig
	mu       sync.Mutex
	limiters *cache.Cache
}

// NewRateLimiter construye el limitador; Rate <= 0 no limita.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = rate.Inf
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RateLimiter{cfg: cfg, limiters: cache.New(10*time.Minute, 20*time.Minute)}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters.Get(ip); ok {
		rl.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.cfg.Rate, rl.cfg.Burst)
	rl.limiters.SetDefault(ip, l)
	return l
}

// RateLimit responde 429 cuando la IP agota su cupo.
func (rl *RateLimiter) RateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.limiter(c.IP()).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Error: "demasiadas solicitudes, intente más tarde"})
		}
		return c.Next()
	}
}
