package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	apperrors "gofest/errors"
)

type KeyFunc func(c *fiber.Ctx) string

type Options struct {
	Store   *Store
	Stats   StatsStore
	KeyFn   KeyFunc
	Message string
	Log     *logrus.Entry
}

// IPKey identifies the caller by address, preferring the first X-Forwarded-For hop.
func IPKey(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}

func New(opts Options) fiber.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = IPKey
	}
	if opts.Message == "" {
		opts.Message = "Too many requests. Please wait a moment."
	}
	retryAfter := strconv.Itoa(int((opts.Store.Interval() + time.Second - 1) / time.Second))

	return func(c *fiber.Ctx) error {
		key := opts.KeyFn(c)
		allowed := opts.Store.Allow(key)

		if opts.Stats != nil {
			err := opts.Stats.Record(c.UserContext(), StatsEvent{
				Key:     key,
				Allowed: allowed,
				Method:  c.Method(),
				Path:    c.Path(),
				At:      time.Now(),
			})
			if err != nil && opts.Log != nil {
				opts.Log.Warnf("cannot record rate limit decision: %v", err)
			}
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return apperrors.RaiseTooManyRequestsError(c, opts.Message)
		}
		return c.Next()
	}
}
