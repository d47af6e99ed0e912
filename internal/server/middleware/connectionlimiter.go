package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tablelink/tablelink/pkg/config"
)

// ConnectionCounter reports how many active connections an IP currently
// holds.
type ConnectionCounter func(ip string) int

func NewConnectionLimiter(
	logger *slog.Logger,
	counter ConnectionCounter,
	config config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.MaxPerIP <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Connection limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			count := counter(reqMeta.IP)
			if count >= config.MaxPerIP {
				logger.Warn("Connection limit reached for IP", slog.String("ip", reqMeta.IP), slog.Int("count", count))
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
