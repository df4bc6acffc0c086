package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/cache"
)

// RateLimit allows at most limit requests per caller per window using a fixed
// window counter in the cache. It must run after authentication. It is a no-op
// when the cache is disabled, limit is not positive or window is under a second.
// Cache errors fail open.
func RateLimit(c cache.Cache, scope string, limit int, window time.Duration, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limit <= 0 || window < time.Second || !c.Enabled() {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.GetUser(r.Context())
			if !ok {
				next(w, r)
				return
			}

			bucket := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, user.ID, bucket)

			count, err := c.Increment(r.Context(), key, window)
			if err != nil {
				logger.Warn("Rate limit check failed, allowing request",
					zap.String("scope", scope),
					zap.Error(err))
				next(w, r)
				return
			}
			if count > int64(limit) {
				logger.Info("Rate limit exceeded",
					zap.String("scope", scope),
					zap.String("user_id", user.ID.String()))
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}
			next(w, r)
		}
	}
}
