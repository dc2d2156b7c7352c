package fakebackend

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	Green      = "\033[32m"
	Blue       = "\033[34m"
	Cyan       = "\033[36m"
	Yellow     = "\033[33m"
	Magenta    = "\033[35m"
	Gray       = "\033[90m"
	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
	"PATCH":  Magenta,
}

type contextKey string

const contextKeyUser contextKey = "user"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (b *Backend) apiMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		b.LoggingMiddleware,
		b.RecoverMiddleware,
	}
	return append(chained, mw...)
}

func (b *Backend) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.env != "DEV" {
			next(w, r)
			return
		}
		logRoute(r.Method, r.URL.Path)
		next(w, r)
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	display := color + fmt.Sprintf(" %-7s", method) + ResetColor
	log.Info().Msgf("[%-19s] %s", display, path)
}

func (b *Backend) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("Recovered from handler panic")
				writeError(w, http.StatusInternalServerError, "Internal error")
			}
		}()
		next(w, r)
	}
}

// RequireAuth rejects requests without a valid access token. Deactivated
// accounts get 403 with the ACCOUNT_INACTIVE code.
func (b *Backend) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		b.mu.Lock()
		u, err := b.verify(raw, tokenTypeAccess)
		inactive := u != nil && u.Inactive
		b.mu.Unlock()

		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token expired")
			return
		}
		if inactive {
			writeInactive(w)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, u)))
	}
}

func userFrom(r *http.Request) *User {
	u, _ := r.Context().Value(contextKeyUser).(*User)
	return u
}
