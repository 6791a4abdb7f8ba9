package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/gst-invoices/httpx"
)

type ctxKey string

const (
	sessionCookieName = "session"
	operatorIDCtxKey  = ctxKey("operatorID")
)

// SessionTTL is how long a session cookie stays valid.
const SessionTTL = 14 * 24 * time.Hour

// OperatorVerifier is an optional callback to validate that a session's operator still exists.
// Set it during app bootstrap via SetOperatorVerifier. If nil, no extra verification is performed.
type OperatorVerifier func(ctx context.Context, id uint) bool

var (
	mu       sync.RWMutex
	verifier OperatorVerifier
	secret   string
)

// SetOperatorVerifier configures the global verifier used by RequireAuth.
func SetOperatorVerifier(v OperatorVerifier) {
	mu.Lock()
	defer mu.Unlock()
	verifier = v
}

// SetSecret configures the HMAC key for session cookies.
func SetSecret(s string) {
	mu.Lock()
	defer mu.Unlock()
	secret = s
}

// Secret returns the configured secret, SESSION_SECRET, or a default dev value.
func Secret() string {
	mu.RLock()
	s := secret
	mu.RUnlock()
	if s != "" {
		return s
	}
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie carrying the operator id and its expiry.
func CreateSession(w http.ResponseWriter, operatorID uint) {
	expires := time.Now().Add(SessionTTL)
	payload := strconv.FormatUint(uint64(operatorID), 10) + "." + strconv.FormatInt(expires.Unix(), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + sign(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the operator id.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(sign(payload))) {
		return 0, false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return 0, false
	}
	id64, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}

// WithOperatorID stores the operator id in context.
func WithOperatorID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, operatorIDCtxKey, id)
}

// OperatorIDFromContext extracts the operator id.
func OperatorIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(operatorIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// Middleware attaches the operator id to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := ParseSession(r); ok {
			r = r.WithContext(WithOperatorID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 JSON unless the request carries a valid session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := OperatorIDFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
			return
		}
		mu.RLock()
		v := verifier
		mu.RUnlock()
		if v != nil && !v(r.Context(), id) {
			// Session refers to a removed operator: clear and treat as unauthorized.
			ClearSession(w)
			httpx.JSONError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
