package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParseLimit parses the limit query param and clamps it to [1, maxLimit].
func ParseLimit(r *http.Request, defLimit, maxLimit int) int {
	if maxLimit < 1 {
		maxLimit = 1
	}
	lim := parseIntQuery(r, "limit", defLimit)
	if lim < 1 {
		lim = 1
	}
	if lim > maxLimit {
		lim = maxLimit
	}
	return lim
}

// OwnerResolver derives the submitting owner's identity from a request.
type OwnerResolver struct {
	// Header carries an explicit owner id. Empty disables the header lookup.
	Header string
	// TrustProxy makes the IP fallback honour X-Forwarded-For and X-Real-IP.
	TrustProxy bool
}

// Owner returns the header value when present, otherwise the client IP.
func (o OwnerResolver) Owner(r *http.Request) string {
	if o.Header != "" {
		if v := strings.TrimSpace(r.Header.Get(o.Header)); v != "" {
			return v
		}
	}
	return o.ClientIP(r)
}

// ClientIP returns the best-effort client address for r.
func (o OwnerResolver) ClientIP(r *http.Request) string {
	if o.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
