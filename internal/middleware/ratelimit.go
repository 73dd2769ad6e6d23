package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"stylegen/internal/http/respond"
)

// RateLimit allows limit requests per window for each client IP, with a
// burst of limit. Idle limiters are evicted after a few windows. A
// non-positive limit disables the middleware.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 || per <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	every := rate.Every(per / time.Duration(limit))
	limiters := gocache.New(3*per, 5*per)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			lim := rate.NewLimiter(every, limit)
			if err := limiters.Add(ip, lim, gocache.DefaultExpiration); err != nil {
				if cached, ok := limiters.Get(ip); ok {
					lim = cached.(*rate.Limiter)
				}
			}
			limiters.SetDefault(ip, lim)
			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				respond.Fail(w, http.StatusTooManyRequests, respond.CodeBadRequest, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
