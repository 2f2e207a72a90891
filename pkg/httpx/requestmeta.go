package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"github.com/untoldhq/fintrack/pkg/slogx"
)

// Meta carries the request attributes that audit events and logs need:
// a correlation ID shared by everything produced within one request, the
// originating address, and the client agent string.
type Meta struct {
	RequestID string
	IP        string
	UserAgent string
	Client    string // parsed browser/OS summary, "" when unknown
}

// WithMeta stores request metadata in the context.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, m)
}

// MetaFromContext returns the request metadata, or the zero Meta when none
// was captured (e.g. outside an HTTP request).
func MetaFromContext(ctx context.Context) Meta {
	if m, ok := ctx.Value(ctxKeyMeta).(Meta); ok {
		return m
	}
	return Meta{}
}

// RequestMetadata resolves a correlation ID (from X-Request-ID, or freshly
// generated), the client IP, and the user agent, and attaches them to the
// request context along with a request-scoped logger annotation.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		m := Meta{
			RequestID: reqID,
			IP:        ClientIP(r),
			UserAgent: r.UserAgent(),
			Client:    summarizeClient(r.UserAgent()),
		}

		ctx := WithMeta(r.Context(), m)
		ctx = slogx.WithRequestID(ctx, reqID)

		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP extracts the originating address, honoring X-Forwarded-For and
// X-Real-IP for proxied requests.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// summarizeClient renders a short "Browser x.y (OS)" description from a raw
// user agent string, or "" when nothing useful can be parsed.
func summarizeClient(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	if ua.OS() != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, ua.OS())
	}
	return fmt.Sprintf("%s %s", name, version)
}
