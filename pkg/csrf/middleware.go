// Package csrf protects HTML form posts with a signed double-submit token: a
// cookie holds the token and every unsafe request must echo it in the
// "_csrf" form field or the X-CSRF-Token header.
package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
)

type contextKey string

const tokenKey contextKey = "csrf_token"

const (
	cookieName = "contacts_csrf"
	FieldName  = "_csrf"
	HeaderName = "X-CSRF-Token"
)

// CookieName is the name of the cookie carrying the token.
func CookieName() string {
	return cookieName
}

// Token returns the token for the current request, or "" outside Protect.
func Token(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}

// WithToken stores token in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// NewToken creates a fresh signed token.
func NewToken(secret []byte) string {
	return sign(newNonce(), secret)
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// maxMemory matches the net/http default used by Request.FormValue.
const maxMemory = 32 << 20

// formToken parses the body and returns the submitted form token. Parse
// errors are reported instead of being read as a missing token.
func formToken(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", err
	}
	return r.FormValue(FieldName), nil
}

// Protect issues a token cookie when missing and rejects unsafe requests whose
// submitted token does not match the cookie.
func Protect(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, err := verify(c.Value, secret); err == nil {
					token = c.Value
				}
			}

			if !safeMethod(r.Method) {
				submitted := r.Header.Get(HeaderName)
				if submitted == "" {
					var err error
					if submitted, err = formToken(r); err != nil {
						var tooLarge *http.MaxBytesError
						if errors.As(err, &tooLarge) {
							http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
							return
						}
						http.Error(w, "malformed form body", http.StatusBadRequest)
						return
					}
				}
				if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
					slog.Warn("csrf token rejected", "method", r.Method, "path", r.URL.Path)
					http.Error(w, "invalid csrf token", http.StatusForbidden)
					return
				}
			}

			if token == "" {
				token = NewToken(secret)
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
		})
	}
}
